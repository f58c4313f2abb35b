package domain

import (
	"net/url"
	"strconv"
)

// CalcParamsFromValues decodes a CalcParams from a url.Values, the shape
// shared by the /api/calc query string and the durable queue's url-encoded
// tail. Grounded on the original's `actix_web::web::Query::<CalcData>`.
func CalcParamsFromValues(v url.Values) CalcParams {
	var c CalcParams
	c.Md5 = v.Get("md5")
	c.FileName = v.Get("file_name")
	c.Bid = parseOptInt32(v, "bid")
	c.Sid = parseOptInt32(v, "sid")
	c.Mode = parseOptUint8(v, "mode")
	c.Mods = parseOptUint32(v, "mods")
	c.N50 = parseOptInt(v, "n50")
	c.N100 = parseOptInt(v, "n100")
	c.N300 = parseOptInt(v, "n300")
	c.Katu = parseOptInt(v, "katu")
	c.Miss = parseOptInt(v, "miss")
	c.Combo = parseOptInt(v, "combo")
	c.PassedObj = parseOptInt(v, "passed_obj")
	c.Acc = parseOptFloat64(v, "acc")
	c.Simple = parseOptBool(v, "simple")
	c.AccList = parseOptBool(v, "acc_list")
	c.NoMiss = parseOptBool(v, "no_miss")
	return c
}

// Encode renders CalcParams back to a url.Values tail for durable-queue
// storage, the inverse of CalcParamsFromValues.
func (c CalcParams) Encode() string {
	v := url.Values{}
	if c.Md5 != "" {
		v.Set("md5", c.Md5)
	}
	if c.FileName != "" {
		v.Set("file_name", c.FileName)
	}
	setOptInt32(v, "bid", c.Bid)
	setOptInt32(v, "sid", c.Sid)
	setOptUint8(v, "mode", c.Mode)
	setOptUint32(v, "mods", c.Mods)
	setOptInt(v, "n50", c.N50)
	setOptInt(v, "n100", c.N100)
	setOptInt(v, "n300", c.N300)
	setOptInt(v, "katu", c.Katu)
	setOptInt(v, "miss", c.Miss)
	setOptInt(v, "combo", c.Combo)
	setOptInt(v, "passed_obj", c.PassedObj)
	setOptFloat64(v, "acc", c.Acc)
	setOptBool(v, "simple", c.Simple)
	setOptBool(v, "acc_list", c.AccList)
	setOptBool(v, "no_miss", c.NoMiss)
	return v.Encode()
}

func parseOptInt32(v url.Values, key string) *int32 {
	s := v.Get(key)
	if s == "" {
		return nil
	}
	i, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return nil
	}
	r := int32(i)
	return &r
}

func parseOptUint8(v url.Values, key string) *uint8 {
	s := v.Get(key)
	if s == "" {
		return nil
	}
	i, err := strconv.ParseUint(s, 10, 8)
	if err != nil {
		return nil
	}
	r := uint8(i)
	return &r
}

func parseOptUint32(v url.Values, key string) *uint32 {
	s := v.Get(key)
	if s == "" {
		return nil
	}
	i, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return nil
	}
	r := uint32(i)
	return &r
}

func parseOptInt(v url.Values, key string) *int {
	s := v.Get(key)
	if s == "" {
		return nil
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &i
}

func parseOptFloat64(v url.Values, key string) *float64 {
	s := v.Get(key)
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &f
}

func parseOptBool(v url.Values, key string) *bool {
	// "any non-null integer => true" per spec §6.
	s := v.Get(key)
	if s == "" {
		return nil
	}
	b := true
	return &b
}

func setOptInt32(v url.Values, key string, p *int32) {
	if p != nil {
		v.Set(key, strconv.FormatInt(int64(*p), 10))
	}
}

func setOptUint8(v url.Values, key string, p *uint8) {
	if p != nil {
		v.Set(key, strconv.FormatUint(uint64(*p), 10))
	}
}

func setOptUint32(v url.Values, key string, p *uint32) {
	if p != nil {
		v.Set(key, strconv.FormatUint(uint64(*p), 10))
	}
}

func setOptInt(v url.Values, key string, p *int) {
	if p != nil {
		v.Set(key, strconv.Itoa(*p))
	}
}

func setOptFloat64(v url.Values, key string, p *float64) {
	if p != nil {
		v.Set(key, strconv.FormatFloat(*p, 'f', -1, 64))
	}
}

func setOptBool(v url.Values, key string, p *bool) {
	if p != nil && *p {
		v.Set(key, "1")
	}
}
