// Copyright © 2026 GITTE Labs - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

//go:build !linux

package prereq

import "fmt"

func defaultSampler() Sampler { return unsupportedSampler{} }

type unsupportedSampler struct{}

func (unsupportedSampler) Sample() (ResourceSample, error) {
	return ResourceSample{}, fmt.Errorf("resource sampling not supported on this platform")
}
