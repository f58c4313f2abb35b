package http

import "net/http"

// indexPage is the root HTML index (spec §6: "GET / — static HTML index"),
// reproducing the original's routes/debug.rs::index text in spirit.
const indexPage = `<!DOCTYPE html>
<html>
<head><title>pp-server</title></head>
<body>
<h1>pp-server</h1>
<p>pp and star-rating calculation service.</p>
<p>See <a href="/api">/api</a> for the calc endpoint reference.</p>
</body>
</html>`

// apiHelpPage is the /api help page (spec §6: "GET /api — HTML help page"),
// reproducing the original's routes/api.rs::index text in spirit.
const apiHelpPage = `<!DOCTYPE html>
<html>
<head><title>pp-server API</title></head>
<body>
<h1>GET /api/calc</h1>
<p>Query parameters:</p>
<ul>
<li><code>md5</code> - 32-hex content hash</li>
<li><code>bid</code> - beatmap id</li>
<li><code>sid</code> - beatmap set id (requires file_name)</li>
<li><code>file_name</code> - difficulty filename, used with sid</li>
<li><code>mode</code> - 0=std, 1=taiko, 2=catch, 3=mania</li>
<li><code>mods</code> - mod bitmask</li>
<li><code>n50</code>, <code>n100</code>, <code>n300</code>, <code>katu</code>, <code>miss</code>, <code>combo</code>, <code>passed_obj</code></li>
<li><code>acc</code> - accuracy percentage (0..100)</li>
<li><code>simple</code>, <code>acc_list</code>, <code>no_miss</code> - optional flags</li>
</ul>
<p>One of md5, bid, or sid must be present.</p>
<p>Response: <code>{"status":1,"message":"done","pp":123.45}</code></p>
</body>
</html>`

func (a *api) getIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(indexPage))
}

func (a *api) getAPIHelp(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(apiHelpPage))
}
