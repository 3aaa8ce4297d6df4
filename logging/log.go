// Package logging writes one JSON object per log line.
package logging

import (
	"encoding/json"
	"io"
	"log"
	"os"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// RequestIDKey is the gin context key holding the request id
const RequestIDKey = "requestID"

type entry struct {
	TS        string         `json:"ts"`
	Level     string         `json:"level"`
	ReqID     string         `json:"req_id,omitempty"`
	IP        string         `json:"ip,omitempty"`
	Method    string         `json:"method,omitempty"`
	Path      string         `json:"path,omitempty"`
	Action    string         `json:"action,omitempty"`
	Status    int            `json:"status,omitempty"`
	LatencyMs int64          `json:"latency_ms,omitempty"`
	Err       string         `json:"err,omitempty"`
	Fields    map[string]any `json:"fields,omitempty"`
}

var (
	mu  sync.Mutex
	out = log.New(os.Stdout, "", 0)
)

// SetOutput redirects every subsequent line to w
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	out = log.New(w, "", 0)
}

func write(level string, c *gin.Context, action string, err error, fields map[string]any) {
	e := entry{TS: time.Now().UTC().Format(time.RFC3339), Level: level, Action: action, Fields: fields}
	if c != nil {
		e.IP = c.ClientIP()
		e.Method = c.Request.Method
		e.Path = c.Request.URL.Path
		e.Status = c.Writer.Status()
		e.ReqID = c.GetString(RequestIDKey)
	}
	if err != nil {
		e.Err = err.Error()
	}
	b, _ := json.Marshal(e)
	mu.Lock()
	defer mu.Unlock()
	out.Println(string(b))
}

func Info(c *gin.Context, action string, fields map[string]any) { write("info", c, action, nil, fields) }
func Audit(c *gin.Context, action string, fields map[string]any) {
	write("audit", c, action, nil, fields)
}
func Warn(c *gin.Context, action string, fields map[string]any) { write("warn", c, action, nil, fields) }
func Error(c *gin.Context, action string, err error, fields map[string]any) {
	write("error", c, action, err, fields)
}

// Request writes the access line for a finished request
func Request(c *gin.Context, latency time.Duration) {
	e := entry{
		TS:        time.Now().UTC().Format(time.RFC3339),
		Level:     "info",
		Action:    "http.request",
		IP:        c.ClientIP(),
		Method:    c.Request.Method,
		Path:      c.Request.URL.Path,
		Status:    c.Writer.Status(),
		LatencyMs: latency.Milliseconds(),
		ReqID:     c.GetString(RequestIDKey),
	}
	b, _ := json.Marshal(e)
	mu.Lock()
	defer mu.Unlock()
	out.Println(string(b))
}
