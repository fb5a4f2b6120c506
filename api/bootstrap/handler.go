package bootstrap

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"imonitor/internal/config"
)

// Handler serves the agent install script
type Handler struct {
	publicURL   string
	intervalSec int
}

// NewHandler creates a new bootstrap handler
func NewHandler(cfg *config.Config) *Handler {
	return &Handler{
		publicURL:   strings.TrimRight(cfg.PublicURL, "/"),
		intervalSec: cfg.AgentIntervalSec,
	}
}

// GetInstallScript returns the agent installation script.
// GET /install.sh
// The script accepts --token and --endpoint, the two arguments the bootstrap
// command produced at reservation passes through.
func (h *Handler) GetInstallScript(c *gin.Context) {
	c.Header("Content-Type", "text/x-shellscript")
	c.String(http.StatusOK, h.generateInstallScript())
}

func (h *Handler) generateInstallScript() string {
	return fmt.Sprintf(`#!/bin/bash
set -e

TOKEN=""
ENDPOINT="%s"
INTERVAL=%d

for arg in "$@"; do
  case "$arg" in
    --token=*)    TOKEN="${arg#--token=}" ;;
    --endpoint=*) ENDPOINT="${arg#--endpoint=}" ;;
    --interval=*) INTERVAL="${arg#--interval=}" ;;
  esac
done

if [ -z "$TOKEN" ]; then
  echo "Error: --token is required" >&2
  exit 1
fi

echo "=== iMonitor Agent Installation ==="
echo "Endpoint: $ENDPOINT"

if [ "$EUID" -ne 0 ]; then
  echo "Error: This script must be run as root" >&2
  exit 1
fi

# 1. Download agent binary
echo "Downloading agent binary..."
mkdir -p /opt/imonitor
curl -fsSL "$ENDPOINT/assets/imonitor-agent" -o /opt/imonitor/imonitor-agent
chmod +x /opt/imonitor/imonitor-agent

# 2. Install systemd unit
echo "Installing systemd service..."
cat > /etc/systemd/system/imonitor-agent.service <<EOF
[Unit]
Description=iMonitor Agent
After=network-online.target

[Service]
Environment=IMONITOR_TOKEN=$TOKEN
Environment=IMONITOR_ENDPOINT=$ENDPOINT
Environment=IMONITOR_INTERVAL=$INTERVAL
ExecStart=/opt/imonitor/imonitor-agent
Restart=always
RestartSec=5

[Install]
WantedBy=multi-user.target
EOF

# 3. Start agent
systemctl daemon-reload
systemctl enable --now imonitor-agent

echo "=== Installation complete ==="
`, h.publicURL, h.intervalSec)
}
