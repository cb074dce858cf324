// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package xla implements the tuning context of the XLA/PJRT (https://openxla.org/) based backend.
//
// Simply import it with import _ "github.com/gomlx/autotune/backends/xla" to make it available in your program.
// It will register itself as an available backend during initialization.
//
// The PJRT plugin (and its version) and the devices it exposes are saved along the tuning results.
package xla

import (
	"fmt"
	"slices"
	"strconv"
	"sync"

	"github.com/gomlx/autotune/backends"
	"github.com/gomlx/autotune/pkg/support/sets"
	"github.com/gomlx/autotune/pkg/tuning"
	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/pjrt"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// BackendName to be used in AUTOTUNE_BACKEND to select this backend.
const BackendName = "xla"

// Validator keys specific to the xla backend.
const (
	PluginKey     = "PJRT_PLUGIN"
	NumDevicesKey = "NUM_DEVICES"
)

// PluginParam is the configuration option with the name of the PJRT plugin to use, e.g. "xla:plugin=cuda".
const PluginParam = "plugin"

// Registers New() as the default constructor for "xla" backend.
func init() {
	backends.Register(BackendName, New)
}

// Context is the tuning.Context of the xla backend. It owns a PJRT client, released by Finalize.
type Context struct {
	*tuning.DefaultContext

	mu         sync.Mutex
	plugin     *pjrt.Plugin
	client     *pjrt.Client
	pluginName string
	numDevices int
}

// New returns a new xla tuning context using the config (see backends.ParseOptions).
// Besides "enable" and "disable", it accepts the "plugin=<name>" option.
//
// It panics if the plugin can't be loaded.
func New(config string) tuning.Context {
	opts := backends.ParseOptions(config)
	c, err := NewWithPlugin(opts.Params[PluginParam], nil)
	if err != nil {
		panic(err)
	}
	opts.Apply(c, PluginParam)
	return c
}

// NewWithPlugin creates the xla tuning context using the named PJRT plugin, created with the given client options.
// If pluginName is empty, the first of GetAvailablePlugins is used.
func NewWithPlugin(pluginName string, options pjrt.NamedValuesMap) (*Context, error) {
	plugins := GetAvailablePlugins()
	if len(plugins) == 0 {
		return nil, errors.Errorf("no plugins found for backend %q -- either use the absolute "+
			"path to the plugin as the configuration or set PJRT_PLUGIN_LIBRARY_PATH to the path where to search for "+
			"PJRT plugins", BackendName)
	}
	if pluginName == "" {
		pluginName = plugins[0]
	} else if slices.Index(plugins, pluginName) == -1 {
		return nil, errors.Errorf("plugin %q for backend %q not found: available plugins found %q",
			pluginName, BackendName, plugins)
	}
	plugin, err := pjrt.GetPlugin(pluginName)
	if err != nil {
		return nil, errors.WithMessagef(err, "backend %q:", BackendName)
	}
	client, err := plugin.NewClient(options)
	if err != nil {
		return nil, errors.WithMessagef(err, "backend %q:", BackendName)
	}
	c := &Context{
		plugin:     plugin,
		client:     client,
		pluginName: pluginName,
		numDevices: len(client.AddressableDevices()),
	}
	c.DefaultContext = tuning.NewDefaultContext(BackendName, NewValidator(c.PluginDescription, c.NumDevices))
	return c, nil
}

// NewValidator returns the validator of the xla backend: the base checks plus the PJRT plugin description
// and the number of devices.
func NewValidator(pluginDescription func() string, numDevices func() int) *tuning.Validator {
	writeNumDevices := func() string { return strconv.Itoa(numDevices()) }
	return tuning.NewBaseValidator(
		tuning.Check{
			Key:   PluginKey,
			Check: tuning.EqualityCheck("PJRT plugin", pluginDescription),
			Write: pluginDescription,
		},
		tuning.Check{
			Key:   NumDevicesKey,
			Check: tuning.EqualityCheck("Number of devices", writeNumDevices),
			Write: writeNumDevices,
		},
	)
}

// PluginDescription returns the name and version of the PJRT plugin used.
func (c *Context) PluginDescription() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.plugin == nil {
		exceptions.Panicf("%q tuning context's plugin is nil, has it already been finalized?", BackendName)
	}
	return fmt.Sprintf("%s:%s", c.pluginName, c.plugin)
}

// NumDevices used by the PJRT client.
func (c *Context) NumDevices() int {
	return c.numDevices
}

// Finalize releases the PJRT client. The tuning results remain available, but the context can no longer
// Save (its validator needs the plugin).
func (c *Context) Finalize() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.plugin == nil {
		return
	}
	if c.client != nil {
		err := c.client.Destroy()
		if err != nil {
			klog.Warningf("Failure while destroying PJRT client: %+v", err)
		}
		c.client = nil
	}
	c.plugin = nil
}

var (
	// DefaultPlugins is the list of plugins to use in preference order, if not otherwise specified.
	DefaultPlugins = []string{"cuda", "cpu"}

	availablePluginsOnce sync.Once

	// availablePluginsList are the available plugins sorted by DefaultPlugins.
	availablePluginsList []string
)

// GetAvailablePlugins lists the available PJRT plugins -- it caches and reuses the result in future calls.
//
// Plugins are searched in the PJRT_PLUGIN_LIBRARY_PATH directory, see details in pjrt.AvailablePlugins.
func GetAvailablePlugins() []string {
	availablePluginsOnce.Do(func() {
		pluginNames := sets.FromKeys(pjrt.AvailablePlugins())
		availablePluginsList = make([]string, 0, len(pluginNames))

		// Add DefaultPlugins first.
		for _, pluginName := range DefaultPlugins {
			if pluginNames.Has(pluginName) {
				availablePluginsList = append(availablePluginsList, pluginName)
				delete(pluginNames, pluginName)
			}
		}

		// Add the other plugins in alphabetical order.
		availablePluginsList = append(availablePluginsList, sets.Sorted(pluginNames)...)
	})
	return availablePluginsList
}
