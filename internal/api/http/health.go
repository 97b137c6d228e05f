package http

import (
	"html/template"
	"net/http"
	"time"

	"github.com/dikshantchitara/CodePilot-AI-Server/internal/domain/process"
	"github.com/dikshantchitara/CodePilot-AI-Server/internal/infrastructure/monitoring"
	"github.com/dikshantchitara/CodePilot-AI-Server/internal/providers/codegen"
	"github.com/gin-gonic/gin"
)

// HealthReport is the body of /healthz and the model of /health.
type HealthReport struct {
	Status    string              `json:"status"`
	Service   string              `json:"service"`
	Version   string              `json:"version"`
	Workspace string              `json:"workspace"`
	Generator bool                `json:"generator_configured"`
	Processes []process.Info      `json:"processes"`
	Metrics   monitoring.Snapshot `json:"metrics"`
	Timestamp time.Time           `json:"timestamp"`
}

func (h *Handlers) report() HealthReport {
	_, disabled := h.generator.(codegen.Disabled)
	procs := h.registry.List()
	if procs == nil {
		procs = []process.Info{}
	}
	return HealthReport{
		Status:    "healthy",
		Service:   serviceName,
		Version:   h.version,
		Workspace: h.workspace.Root(),
		Generator: !disabled,
		Processes: procs,
		Metrics:   h.metrics.Snapshot(),
		Timestamp: time.Now(),
	}
}

// Health handles the JSON health check
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, h.report())
}

// HealthPage renders the health report for people.
func (h *Handlers) HealthPage(c *gin.Context) {
	c.HTML(http.StatusOK, "health", h.report())
}

var healthTemplate = template.Must(template.New("health").Funcs(template.FuncMap{
	"age": func(t time.Time) string {
		return time.Since(t).Round(time.Second).String()
	},
	"uptime": func(s float64) string {
		return (time.Duration(s) * time.Second).String()
	},
}).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <meta http-equiv="refresh" content="5">
    <title>{{.Service}} Health</title>
    <style>
        * { margin: 0; padding: 0; box-sizing: border-box; }
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', sans-serif;
            background: #0a0a0a;
            color: #e0e0e0;
            padding: 20px;
        }
        .container { max-width: 1100px; margin: 0 auto; }
        h1 { font-size: 1.8rem; margin-bottom: 6px; color: #8ea2ff; }
        .subtitle { color: #888; margin-bottom: 24px; }
        .grid {
            display: grid;
            grid-template-columns: repeat(auto-fit, minmax(200px, 1fr));
            gap: 16px;
            margin-bottom: 24px;
        }
        .card { background: #1a1a1a; border-radius: 10px; padding: 16px; border: 1px solid #333; }
        .label { color: #888; font-size: 0.85rem; }
        .value { font-size: 1.6rem; font-weight: 600; margin-top: 4px; }
        .ok { color: #4ade80; }
        .off { color: #f87171; }
        table { width: 100%; border-collapse: collapse; background: #1a1a1a; border-radius: 10px; overflow: hidden; }
        th, td { text-align: left; padding: 10px 12px; border-bottom: 1px solid #2a2a2a; font-size: 0.9rem; }
        th { color: #888; font-weight: 500; }
        code { font-family: 'SF Mono', Menlo, monospace; }
        .empty { color: #666; padding: 16px; }
    </style>
</head>
<body>
<div class="container">
    <h1>{{.Service}}</h1>
    <div class="subtitle">
        <span class="ok">{{.Status}}</span> · v{{.Version}} · workspace <code>{{.Workspace}}</code> · up {{uptime .Metrics.UptimeSeconds}}
    </div>

    <div class="grid">
        <div class="card"><div class="label">Running processes</div><div class="value">{{len .Processes}}</div></div>
        <div class="card"><div class="label">Open sessions</div><div class="value">{{.Metrics.ActiveConnections}}</div></div>
        <div class="card"><div class="label">HTTP requests</div><div class="value">{{.Metrics.TotalRequests}}</div></div>
        <div class="card"><div class="label">HTTP errors</div><div class="value">{{.Metrics.TotalErrors}}</div></div>
        <div class="card">
            <div class="label">Code generation</div>
            {{if .Generator}}<div class="value ok">ready</div>{{else}}<div class="value off">disabled</div>{{end}}
        </div>
    </div>

    {{if .Processes}}
    <table>
        <tr><th>PID</th><th>Command</th><th>Directory</th><th>Session</th><th>State</th><th>Age</th></tr>
        {{range .Processes}}
        <tr>
            <td>{{.PID}}</td>
            <td><code>{{.Command}}</code></td>
            <td><code>{{.Dir}}</code></td>
            <td><code>{{.Owner}}</code></td>
            <td>{{.State}}</td>
            <td>{{age .StartedAt}}</td>
        </tr>
        {{end}}
    </table>
    {{else}}
    <div class="card empty">No processes running.</div>
    {{end}}
</div>
</body>
</html>
`))
