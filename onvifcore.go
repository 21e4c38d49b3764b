// Package onvifcore holds the viam model family shared by the ONVIF session models.
package onvifcore

import "go.viam.com/rdk/resource"

// Family is the model family of every model in this module.
var Family = resource.ModelNamespace("viam").WithFamily("onvif")
