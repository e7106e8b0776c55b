package adminapi

import "net/http"

// dashboardHandler serves a minimal status page: it polls /shards and
// /status client-side and renders a table, rather than carrying its own
// CRUD forms the way the teacher's tenant dashboard does — shard topology
// comes from shards.yaml, not from this HTTP surface, so there's nothing
// here to create or edit, only pause/resume buttons against the routes
// already registered in server.go.
func (s *Server) dashboardHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(dashboardHTML))
}

const dashboardHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>pgvault</title>
<style>
  body { font-family: monospace; margin: 2rem; background: #111; color: #ddd; }
  h1 { font-size: 1.2rem; }
  table { border-collapse: collapse; width: 100%; }
  th, td { border: 1px solid #333; padding: 0.4rem 0.8rem; text-align: left; }
  th { background: #1a1a1a; }
  .healthy { color: #6f6; }
  .unhealthy { color: #f66; }
  .paused { color: #fa0; }
  button { font-family: monospace; cursor: pointer; }
</style>
</head>
<body>
<h1>pgvault</h1>
<div id="status"></div>
<table id="shards">
  <thead><tr><th>shard</th><th>idle</th><th>total</th><th>waiting</th><th>max</th><th>health</th><th>paused</th><th></th></tr></thead>
  <tbody></tbody>
</table>
<script>
async function refresh() {
  const status = await (await fetch('/status')).json();
  document.getElementById('status').textContent =
    'uptime: ' + status.uptime_seconds + 's  goroutines: ' + status.goroutines + '  shards: ' + status.num_shards;

  const shards = await (await fetch('/shards')).json();
  const body = document.querySelector('#shards tbody');
  body.innerHTML = '';
  for (const sh of (shards || [])) {
    const st = sh.stats || {};
    const h = sh.health || {};
    const row = document.createElement('tr');
    const healthClass = h.Status === 1 ? 'healthy' : (h.Status === 2 ? 'unhealthy' : '');
    row.innerHTML =
      '<td>' + sh.name + '</td>' +
      '<td>' + (st.Idle ?? '') + '</td>' +
      '<td>' + (st.Total ?? '') + '</td>' +
      '<td>' + (st.Waiting ?? '') + '</td>' +
      '<td>' + (st.Max ?? '') + '</td>' +
      '<td class="' + healthClass + '">' + (h.Status === 1 ? 'healthy' : h.Status === 2 ? 'unhealthy' : 'unknown') + '</td>' +
      '<td class="' + (sh.paused ? 'paused' : '') + '">' + (sh.paused ? 'paused' : '') + '</td>' +
      '<td><button onclick="toggle(\'' + sh.name + '\', ' + sh.paused + ')">' + (sh.paused ? 'resume' : 'pause') + '</button></td>';
    body.appendChild(row);
  }
}
async function toggle(name, paused) {
  await fetch('/shards/' + name + '/' + (paused ? 'resume' : 'pause'), { method: 'POST' });
  refresh();
}
refresh();
setInterval(refresh, 3000);
</script>
</body>
</html>`
