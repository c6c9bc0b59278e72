/*
 * Copyright 2018 The Trickster Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package registry builds the configured document store
package registry

import (
	"github.com/trickstercache/reelsync/pkg/docstore"
	"github.com/trickstercache/reelsync/pkg/docstore/etcd"
	"github.com/trickstercache/reelsync/pkg/docstore/memory"
	"github.com/trickstercache/reelsync/pkg/docstore/options"
	"github.com/trickstercache/reelsync/pkg/observability/logging"
	"github.com/trickstercache/reelsync/pkg/observability/logging/logger"
)

// New validates o and returns the configured Store
func New(o *options.Options) (docstore.Store, error) {
	if o == nil {
		o = options.New()
	}
	if err := o.Validate(); err != nil {
		return nil, err
	}
	switch o.Provider {
	case options.ProviderEtcd:
		return etcd.Dial(o.Etcd)
	}
	logger.Info("docstore running in process", logging.Pairs{"provider": o.Provider})
	return memory.New(), nil
}
