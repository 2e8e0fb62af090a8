// Package worker is the HTTP transport to the external media worker. It is
// the single normalization boundary: the worker's loosely-shaped JSON
// responses are folded into canonical typed results here, and everything
// past this package operates on those shapes only.
package worker
