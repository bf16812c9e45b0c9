package contexthelpers

import (
	"context"
	"net/http"
)

func WithDeviceID(ctx context.Context, deviceID string) context.Context {
	return context.WithValue(ctx, DeviceIDContextKey, deviceID)
}

func SetDeviceID(r *http.Request, deviceID string) *http.Request {
	return r.WithContext(WithDeviceID(r.Context(), deviceID))
}

func SetCurrentPath(r *http.Request, currentPath string) *http.Request {
	ctx := r.Context()
	ctx = context.WithValue(ctx, CurrentPathContextKey, currentPath)
	return r.WithContext(ctx)
}
