package animation

import _ "embed"

//go:embed dashboard.html
var dashboardHTML []byte
