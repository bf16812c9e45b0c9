package contexthelpers

type contextKey string

const DeviceIDContextKey = contextKey("deviceID")
const CurrentPathContextKey = contextKey("currentPath")
