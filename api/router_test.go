package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"imonitor/internal/config"
	"imonitor/internal/model"
	"imonitor/internal/registry"
	"imonitor/internal/store"
)

func setupTestServer(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	// A pooled :memory: connection would be a separate empty database.
	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("Failed to access connection pool: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := gdb.AutoMigrate(&model.Node{}); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	cfg := &config.Config{
		PublicURL:         "http://collector.test:8080",
		AgentIntervalSec:  5,
		OfflineTimeoutSec: 30,
	}

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	reg := registry.NewService(store.New(gdb), nil, cfg, logrus.NewEntry(log))

	r := gin.New()
	SetupRouter(r, reg, cfg)
	return r, gdb
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to marshal request body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, _ := http.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestEndToEnd_ReserveReportListAge(t *testing.T) {
	r, gdb := setupTestServer(t)

	// Reserve a node.
	w := doJSON(t, r, "POST", "/api/nodes/reserve", map[string]any{"label": ""})
	if w.Code != http.StatusOK {
		t.Fatalf("Reserve: expected 200, got %d (%s)", w.Code, w.Body.String())
	}

	var res struct {
		ID      string `json:"id"`
		Token   string `json:"token"`
		Command string `json:"command"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("Failed to unmarshal reservation: %v", err)
	}
	if res.ID == "" || res.Token == "" {
		t.Fatalf("Reservation missing id or token: %+v", res)
	}
	if !strings.Contains(res.Command, res.Token) {
		t.Errorf("Command should embed the token: %s", res.Command)
	}

	// Report metrics.
	w = doJSON(t, r, "POST", "/api/report", map[string]any{
		"token":    res.Token,
		"hostname": "h1",
		"meta":     map[string]any{"os": "Linux"},
		"metrics":  map[string]any{"cpu": 10},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("Report: expected 200, got %d (%s)", w.Code, w.Body.String())
	}

	var reportResp map[string]string
	json.Unmarshal(w.Body.Bytes(), &reportResp)
	if reportResp["status"] != "ok" {
		t.Errorf("Expected status ok, got %v", reportResp)
	}

	// List: one node, online, hostname filled, label stuck from hostname.
	w = doJSON(t, r, "GET", "/api/nodes", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("List: expected 200, got %d", w.Code)
	}

	var list struct {
		Nodes []struct {
			ID       string `json:"id"`
			Label    string `json:"label"`
			Hostname string `json:"hostname"`
			Status   string `json:"status"`
		} `json:"nodes"`
		GeneratedAt int64 `json:"generated_at"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("Failed to unmarshal list: %v", err)
	}
	if len(list.Nodes) != 1 {
		t.Fatalf("Expected 1 node, got %d", len(list.Nodes))
	}
	if list.Nodes[0].Hostname != "h1" {
		t.Errorf("Expected hostname h1, got %s", list.Nodes[0].Hostname)
	}
	if list.Nodes[0].Label != "h1" {
		t.Errorf("Expected label filled from first hostname, got %s", list.Nodes[0].Label)
	}
	if list.Nodes[0].Status != "online" {
		t.Errorf("Expected status online, got %s", list.Nodes[0].Status)
	}
	if list.GeneratedAt == 0 {
		t.Error("Expected non-zero generated_at")
	}

	// Age the node past the offline timeout without further reports.
	aged := time.Now().Unix() - 31
	if err := gdb.Exec("UPDATE nodes SET last_seen = ?", aged).Error; err != nil {
		t.Fatalf("Failed to age node: %v", err)
	}

	w = doJSON(t, r, "GET", "/api/nodes", nil)
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("Failed to unmarshal list: %v", err)
	}
	if list.Nodes[0].Status != "offline" {
		t.Errorf("Silent node should age into offline, got %s", list.Nodes[0].Status)
	}
}

func TestReserve_EmptyBody(t *testing.T) {
	r, _ := setupTestServer(t)

	w := doJSON(t, r, "POST", "/api/nodes/reserve", nil)
	if w.Code != http.StatusOK {
		t.Errorf("Reserve without body should succeed, got %d (%s)", w.Code, w.Body.String())
	}
}

func TestReport_UnknownToken(t *testing.T) {
	r, gdb := setupTestServer(t)

	w := doJSON(t, r, "POST", "/api/report", map[string]any{
		"token":    "never-issued",
		"hostname": "h1",
		"meta":     map[string]any{},
		"metrics":  map[string]any{},
	})

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d (%s)", w.Code, w.Body.String())
	}

	var count int64
	gdb.Model(&model.Node{}).Count(&count)
	if count != 0 {
		t.Errorf("Unknown-token report must not create records, found %d", count)
	}
}

func TestReport_MissingToken(t *testing.T) {
	r, _ := setupTestServer(t)

	w := doJSON(t, r, "POST", "/api/report", map[string]any{
		"hostname": "h1",
		"meta":     map[string]any{},
		"metrics":  map[string]any{},
	})

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d (%s)", w.Code, w.Body.String())
	}
}

func TestDelete_Flow(t *testing.T) {
	r, _ := setupTestServer(t)

	w := doJSON(t, r, "POST", "/api/nodes/reserve", map[string]any{"label": "doomed"})
	var res struct {
		Token string `json:"token"`
	}
	json.Unmarshal(w.Body.Bytes(), &res)

	w = doJSON(t, r, "DELETE", fmt.Sprintf("/api/nodes/%s", res.Token), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Delete: expected 200, got %d (%s)", w.Code, w.Body.String())
	}

	var delResp map[string]string
	json.Unmarshal(w.Body.Bytes(), &delResp)
	if delResp["status"] != "deleted" {
		t.Errorf("Expected status deleted, got %v", delResp)
	}

	// Deletion is final: the token no longer authenticates reports.
	w = doJSON(t, r, "POST", "/api/report", map[string]any{
		"token":    res.Token,
		"hostname": "h1",
		"meta":     map[string]any{},
		"metrics":  map[string]any{},
	})
	if w.Code != http.StatusNotFound {
		t.Errorf("Report after delete: expected 404, got %d", w.Code)
	}

	// And a second delete is rejected too.
	w = doJSON(t, r, "DELETE", fmt.Sprintf("/api/nodes/%s", res.Token), nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Second delete: expected 404, got %d", w.Code)
	}
}

func TestInstallScript(t *testing.T) {
	r, _ := setupTestServer(t)

	w := doJSON(t, r, "GET", "/install.sh", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	script := w.Body.String()
	if !strings.Contains(script, "http://collector.test:8080") {
		t.Error("Install script should embed the public URL")
	}
	if !strings.Contains(script, "--token=") {
		t.Error("Install script should accept a --token argument")
	}
	if !strings.Contains(script, "INTERVAL=5") {
		t.Error("Install script should embed the configured interval")
	}
}

func TestPing(t *testing.T) {
	r, _ := setupTestServer(t)

	w := doJSON(t, r, "GET", "/api/ping", nil)
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", w.Code)
	}
}
