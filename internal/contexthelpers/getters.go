package contexthelpers

import (
	"context"
)

// DeviceID returns the identity of the device that sent the request. Every persisted goal draft, plan and
// challenge belongs to one device.
func DeviceID(ctx context.Context) string {
	deviceID, ok := ctx.Value(DeviceIDContextKey).(string)
	if !ok {
		return ""
	}

	return deviceID
}

func CurrentPath(ctx context.Context) string {
	currentPath, ok := ctx.Value(CurrentPathContextKey).(string)
	if !ok {
		return ""
	}

	return currentPath
}
