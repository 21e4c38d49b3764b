package profile

import (
	"context"
	"strings"

	"go.viam.com/rdk/logging"

	"github.com/viam-modules/onvifcore/device"
	"github.com/viam-modules/onvifcore/normalize"
	"github.com/viam-modules/onvifcore/xsd/onvif"
)

// CoreName is the name of the device management handler. It is active for every device.
const CoreName = "core"

// NewCore returns the device management handler.
func NewCore(logger logging.Logger) Handler {
	return newHandler(CoreName, []string{device.NamespaceDevice}, logger.Sublogger(CoreName), []command{
		{
			Command: Command{Name: "GetDeviceInformation", Description: "manufacturer, model, firmware and serial number"},
			run: func(ctx context.Context, c Caller, _ map[string]interface{}) (interface{}, error) {
				return call(ctx, c, device.ServiceDevice, device.GetDeviceInformation{}, normalize.ParseDeviceInformation)
			},
		},
		{
			Command: Command{Name: "GetHostname", Description: "configured hostname"},
			run: func(ctx context.Context, c Caller, _ map[string]interface{}) (interface{}, error) {
				return call(ctx, c, device.ServiceDevice, device.GetHostname{}, normalize.ParseHostname)
			},
		},
		{
			Command: Command{Name: "SetHostname", Description: "set the hostname", Params: []string{"name"}},
			run:     setHostname,
		},
		{
			Command: Command{Name: "GetDNS", Description: "DNS configuration"},
			run: func(ctx context.Context, c Caller, _ map[string]interface{}) (interface{}, error) {
				return call(ctx, c, device.ServiceDevice, device.GetDNS{}, normalize.ParseDNS)
			},
		},
		{
			Command: Command{Name: "GetNTP", Description: "NTP configuration"},
			run: func(ctx context.Context, c Caller, _ map[string]interface{}) (interface{}, error) {
				return call(ctx, c, device.ServiceDevice, device.GetNTP{}, normalize.ParseNTP)
			},
		},
		{
			Command: Command{Name: "GetDynamicDNS", Description: "dynamic DNS configuration"},
			run: func(ctx context.Context, c Caller, _ map[string]interface{}) (interface{}, error) {
				return call(ctx, c, device.ServiceDevice, device.GetDynamicDNS{}, normalize.ParseDynamicDNS)
			},
		},
		{
			Command: Command{Name: "GetNetworkInterfaces", Description: "network interface configuration"},
			run: func(ctx context.Context, c Caller, _ map[string]interface{}) (interface{}, error) {
				return call(ctx, c, device.ServiceDevice, device.GetNetworkInterfaces{}, normalize.ParseNetworkInterfaces)
			},
		},
		{
			Command: Command{Name: "GetNetworkProtocols", Description: "enabled network protocols and ports"},
			run: func(ctx context.Context, c Caller, _ map[string]interface{}) (interface{}, error) {
				return call(ctx, c, device.ServiceDevice, device.GetNetworkProtocols{}, normalize.ParseNetworkProtocols)
			},
		},
		{
			Command: Command{Name: "GetNetworkDefaultGateway", Description: "default gateway addresses"},
			run: func(ctx context.Context, c Caller, _ map[string]interface{}) (interface{}, error) {
				return call(ctx, c, device.ServiceDevice, device.GetNetworkDefaultGateway{}, normalize.ParseDefaultGateway)
			},
		},
		{
			Command: Command{Name: "GetScopes", Description: "device scopes"},
			run: func(ctx context.Context, c Caller, _ map[string]interface{}) (interface{}, error) {
				return call(ctx, c, device.ServiceDevice, device.GetScopes{}, normalize.ParseScopes)
			},
		},
		{
			Command: Command{Name: "AddScopes", Description: "add configurable scopes", Params: []string{"scopes"}},
			run: func(ctx context.Context, c Caller, params map[string]interface{}) (interface{}, error) {
				scopes, err := GetStringList(params, "scopes")
				if err != nil {
					return nil, err
				}
				if _, err := c.CallMethod(ctx, device.ServiceDevice, device.AddScopes{ScopeItem: scopes}); err != nil {
					return nil, err
				}
				return success(), nil
			},
		},
		{
			Command: Command{Name: "RemoveScopes", Description: "remove configurable scopes", Params: []string{"scopes"}},
			run: func(ctx context.Context, c Caller, params map[string]interface{}) (interface{}, error) {
				scopes, err := GetStringList(params, "scopes")
				if err != nil {
					return nil, err
				}
				if _, err := c.CallMethod(ctx, device.ServiceDevice, device.RemoveScopes{ScopeItem: scopes}); err != nil {
					return nil, err
				}
				return success(), nil
			},
		},
		{
			Command: Command{Name: "GetServices", Description: "advertised services and their addresses"},
			run: func(ctx context.Context, c Caller, _ map[string]interface{}) (interface{}, error) {
				return call(ctx, c, device.ServiceDevice, device.GetServices{IncludeCapability: true}, normalize.ParseServices)
			},
		},
		{
			Command: Command{Name: "GetCapabilities", Description: "capabilities by category", Params: []string{"category"}},
			run: func(ctx context.Context, c Caller, params map[string]interface{}) (interface{}, error) {
				category := GetOptionalString(params, "category", "All")
				req := device.GetCapabilities{Category: onvif.CapabilityCategory(category)}
				return call(ctx, c, device.ServiceDevice, req, normalize.ParseCapabilities)
			},
		},
		{
			Command: Command{Name: "GetSystemDateAndTime", Description: "device clock"},
			run: func(ctx context.Context, c Caller, _ map[string]interface{}) (interface{}, error) {
				return call(ctx, c, device.ServiceDevice, device.GetSystemDateAndTime{}, normalize.ParseSystemDateTime)
			},
		},
		{
			Command: Command{Name: "SystemReboot", Description: "reboot the device"},
			run:     systemReboot,
		},
	})
}

func setHostname(ctx context.Context, c Caller, params map[string]interface{}) (interface{}, error) {
	name, err := GetString(params, "name")
	if err != nil {
		return nil, err
	}
	if _, err := c.CallMethod(ctx, device.ServiceDevice, device.SetHostname{Name: strings.TrimSpace(name)}); err != nil {
		return nil, err
	}
	return success(), nil
}

func systemReboot(ctx context.Context, c Caller, _ map[string]interface{}) (interface{}, error) {
	body, err := c.CallMethod(ctx, device.ServiceDevice, device.SystemReboot{})
	if err != nil {
		return nil, err
	}
	resp, err := normalize.Response(body, "SystemRebootResponse")
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"message": resp.Value("Message")}, nil
}
