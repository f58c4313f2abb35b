package osuapi

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/pp-server/pp-server/internal/domain"
)

const osuFileURLFormat = "https://old.ppy.sh/osu/%d"

// Downloader fetches raw .osu files directly (unkeyed), parses them, and
// verifies their content hash — grounded on OsuApi::get_pp_beatmap, which
// uses a dedicated unkeyed client distinct from the api_clients pool.
type Downloader struct {
	httpClient *http.Client
	parser     domain.Parser
	log        zerolog.Logger
}

// NewDownloader builds a Downloader using parser to turn raw bytes into the
// opaque ParsedBeatmap handle.
func NewDownloader(parser domain.Parser, log zerolog.Logger) *Downloader {
	return &Downloader{
		httpClient: &http.Client{Timeout: requestTimeout},
		parser:     parser,
		log:        log.With().Str("component", "osuapi.downloader").Logger(),
	}
}

// Download fetches, parses, and hashes the .osu file for bid.
func (d *Downloader) Download(ctx context.Context, bid int32) (domain.ParsedBeatmap, string, []byte, error) {
	url := fmt.Sprintf(osuFileURLFormat, bid)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", nil, domain.NewApiError(domain.ErrRequestFailed, err.Error())
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, "", nil, domain.NewApiError(domain.ErrRequestFailed, err.Error())
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", nil, domain.NewApiError(domain.ErrParseFailed, err.Error())
	}
	if resp.StatusCode >= 400 {
		return nil, "", nil, domain.NewApiError(domain.ErrRequestFailed, fmt.Sprintf("status %d", resp.StatusCode))
	}

	beatmap, err := d.parser.Parse(raw)
	if err != nil {
		d.log.Error().Err(err).Int32("bid", bid).Msg("failed to parse .osu file from request")
		return nil, "", nil, domain.NewApiError(domain.ErrParseFailed, err.Error())
	}

	sum := md5.Sum(raw)
	return beatmap, hex.EncodeToString(sum[:]), raw, nil
}

var _ domain.Downloader = (*Downloader)(nil)
