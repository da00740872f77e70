package types

// Version is the service version, overridden at build time via ldflags
var Version = "v0.1.0"

// ServiceName identifies this service in health responses and error reports
const ServiceName = "shipper"
