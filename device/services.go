package device

import "strings"

// Well-known service names used as endpoint keys.
const (
	ServiceDevice    = "device"
	ServiceMedia     = "media"
	ServiceMedia2    = "media2"
	ServicePTZ       = "ptz"
	ServiceImaging   = "imaging"
	ServiceEvents    = "events"
	ServiceAnalytics = "analytics"
	ServiceDeviceIO  = "deviceio"
	ServiceRecording = "recording"
	ServiceSearch    = "search"
	ServiceReplay    = "replay"
)

// Service namespaces as advertised by GetServices.
const (
	NamespaceDevice    = "http://www.onvif.org/ver10/device/wsdl"
	NamespaceMedia     = "http://www.onvif.org/ver10/media/wsdl"
	NamespaceMedia2    = "http://www.onvif.org/ver20/media/wsdl"
	NamespacePTZ       = "http://www.onvif.org/ver20/ptz/wsdl"
	NamespaceImaging   = "http://www.onvif.org/ver20/imaging/wsdl"
	NamespaceEvents    = "http://www.onvif.org/ver10/events/wsdl"
	NamespaceAnalytics = "http://www.onvif.org/ver20/analytics/wsdl"
	NamespaceDeviceIO  = "http://www.onvif.org/ver10/deviceIO/wsdl"
	NamespaceRecording = "http://www.onvif.org/ver10/recording/wsdl"
	NamespaceSearch    = "http://www.onvif.org/ver10/search/wsdl"
	NamespaceReplay    = "http://www.onvif.org/ver10/replay/wsdl"
)

var namespaceToService = map[string]string{
	NamespaceDevice:    ServiceDevice,
	NamespaceMedia:     ServiceMedia,
	NamespaceMedia2:    ServiceMedia2,
	NamespacePTZ:       ServicePTZ,
	NamespaceImaging:   ServiceImaging,
	NamespaceEvents:    ServiceEvents,
	NamespaceAnalytics: ServiceAnalytics,
	NamespaceDeviceIO:  ServiceDeviceIO,
	NamespaceRecording: ServiceRecording,
	NamespaceSearch:    ServiceSearch,
	NamespaceReplay:    ServiceReplay,
}

// ServiceName maps a service namespace to its endpoint key. Unknown namespaces map to themselves
// so they can still be addressed.
func ServiceName(namespace string) string {
	ns := strings.TrimSpace(namespace)
	for k, v := range namespaceToService {
		if strings.EqualFold(k, ns) {
			return v
		}
	}
	return ns
}

// Namespace maps an endpoint key back to its namespace, or "" if the key is not well-known.
func Namespace(service string) string {
	service = strings.ToLower(service)
	for k, v := range namespaceToService {
		if v == service {
			return k
		}
	}
	return ""
}
