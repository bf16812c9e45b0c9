package main

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/synctest"
	"time"

	"github.com/jersjar7/Fit14-sub001/internal/contexthelpers"
)

type timeoutResponseWriter struct {
	httptest.ResponseRecorder
}

func newTimeoutResponseWriter() *timeoutResponseWriter {
	return &timeoutResponseWriter{
		ResponseRecorder: *httptest.NewRecorder(),
	}
}

// SetWriteDeadline is needed to not get "feature not implemented" error.
func (w *timeoutResponseWriter) SetWriteDeadline(_ time.Time) error {
	// No-op for testing
	return nil
}

func Test_application_timeout(t *testing.T) {
	tests := []struct {
		name     string
		sleepMS  int
		timeout  time.Duration
		timesOut bool
	}{
		{
			name:     "completes within timeout",
			sleepMS:  500,
			timeout:  defaultTimeout,
			timesOut: false,
		},
		{
			name:     "times out with the default timeout",
			sleepMS:  3000,
			timeout:  defaultTimeout,
			timesOut: true,
		},
		{
			name:     "generation gets longer timeout",
			sleepMS:  28000,
			timeout:  30 * time.Second,
			timesOut: false,
		},
		{
			name:     "generation times out",
			sleepMS:  31000,
			timeout:  30 * time.Second,
			timesOut: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			synctest.Test(t, func(t *testing.T) {
				app := &application{ //nolint:exhaustruct // this is a test
					logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
				}
				handler := app.timeout(tt.timeout, http.HandlerFunc(app.testTimeout))

				url := fmt.Sprintf("/api/test/timeout?sleep_ms=%d", tt.sleepMS)
				req := httptest.NewRequest(http.MethodGet, url, nil)
				w := newTimeoutResponseWriter()

				handler.ServeHTTP(w, req)

				time.Sleep(time.Duration(tt.sleepMS) * time.Millisecond)

				if tt.timesOut {
					if w.Code != http.StatusServiceUnavailable {
						t.Errorf("Expected status 503 on timeout, got %d", w.Code)
					}
					if !strings.Contains(w.Body.String(), `"error":"timeout"`) {
						t.Errorf("Expected timeout error in response body, got: %s", w.Body.String())
					}
					if got := w.Header().Get("Content-Type"); got != "application/json" {
						t.Errorf("Expected JSON content type, got %q", got)
					}
				} else if w.Code != http.StatusOK {
					t.Errorf("Expected status 200, got %d", w.Code)
				}
			})
		})
	}
}

func Test_application_routesTimeout(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		app := &application{ //nolint:exhaustruct // this is a test
			logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		}
		handler := app.routes()

		req := httptest.NewRequest(http.MethodGet, "/api/test/timeout?sleep_ms=3000", nil)
		w := newTimeoutResponseWriter()
		handler.ServeHTTP(w, req)

		if w.Code != http.StatusServiceUnavailable {
			t.Errorf("Expected status 503 on timeout, got %d", w.Code)
		}
	})
}

func Test_application_mustDevice(t *testing.T) {
	tests := []struct {
		name       string
		deviceID   string
		wantStatus int
		wantDevice string
	}{
		{
			name:       "accepts a device ID",
			deviceID:   "phone-1",
			wantStatus: http.StatusOK,
			wantDevice: "phone-1",
		},
		{
			name:       "trims whitespace",
			deviceID:   "  phone-2 ",
			wantStatus: http.StatusOK,
			wantDevice: "phone-2",
		},
		{
			name:       "rejects a missing header",
			deviceID:   "",
			wantStatus: http.StatusBadRequest,
			wantDevice: "",
		},
		{
			name:       "rejects a blank header",
			deviceID:   "   ",
			wantStatus: http.StatusBadRequest,
			wantDevice: "",
		},
		{
			name:       "rejects an overlong header",
			deviceID:   strings.Repeat("x", maxDeviceIDLength+1),
			wantStatus: http.StatusBadRequest,
			wantDevice: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := &application{ //nolint:exhaustruct // this is a test
				logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
			}
			var gotDevice string
			handler := app.mustDevice(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotDevice = contexthelpers.DeviceID(r.Context())
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/goals", nil)
			if tt.deviceID != "" {
				req.Header.Set(deviceIDHeader, tt.deviceID)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if gotDevice != tt.wantDevice {
				t.Errorf("device = %q, want %q", gotDevice, tt.wantDevice)
			}
			if tt.wantStatus == http.StatusBadRequest && !strings.Contains(w.Body.String(), "missing_device_id") {
				t.Errorf("body = %s, want missing_device_id error", w.Body.String())
			}
		})
	}
}

func Test_application_recoverPanic(t *testing.T) {
	app := &application{ //nolint:exhaustruct // this is a test
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	handler := app.recoverPanic(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"error":"internal"`) {
		t.Errorf("body = %s, want internal error", w.Body.String())
	}
}
