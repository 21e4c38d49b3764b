// This package provides the entrypoint for the module
package main

import (
	"context"

	"go.viam.com/rdk/components/generic"
	"go.viam.com/rdk/module"
	"go.viam.com/rdk/services/discovery"

	"github.com/viam-modules/onvifcore/onvifdiscovery"
	"github.com/viam-modules/onvifcore/onvifsession"
)

func main() {
	err := realMain(context.Background())
	if err != nil {
		panic(err)
	}
}

func realMain(ctx context.Context) error {
	myMod, err := module.NewModuleFromArgs(ctx)
	if err != nil {
		return err
	}

	err = myMod.AddModelFromRegistry(ctx, generic.API, onvifsession.Model)
	if err != nil {
		return err
	}
	err = myMod.AddModelFromRegistry(ctx, discovery.API, onvifdiscovery.Model)
	if err != nil {
		return err
	}

	err = myMod.Start(ctx)
	defer myMod.Close(ctx)
	if err != nil {
		return err
	}
	<-ctx.Done()
	return nil
}
