// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package kiln

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"golang.org/x/exp/maps"
)

// InterpreterFactory creates interpreter instances from an implementation
// specific configuration. A nil configuration requests the default setup.
type InterpreterFactory func(config any) (Interpreter, error)

// NewInterpreter creates a new instance of the interpreter registered under
// the given name. Names are case-insensitive.
func NewInterpreter(name string, config ...any) (Interpreter, error) {
	if len(config) > 1 {
		return nil, fmt.Errorf("invalid configuration: too many arguments")
	}
	factory := GetInterpreterFactory(name)
	if factory == nil {
		return nil, fmt.Errorf("interpreter not found: %s", name)
	}
	var c any
	if len(config) > 0 {
		c = config[0]
	}
	return factory(c)
}

func GetInterpreterFactory(name string) InterpreterFactory {
	interpreterRegistryLock.Lock()
	defer interpreterRegistryLock.Unlock()
	return interpreterRegistry[strings.ToLower(name)]
}

// GetAllRegisteredInterpreters returns a snapshot of the registry.
func GetAllRegisteredInterpreters() map[string]InterpreterFactory {
	interpreterRegistryLock.Lock()
	defer interpreterRegistryLock.Unlock()
	return maps.Clone(interpreterRegistry)
}

// RegisteredInterpreterNames lists the names of all registered interpreters
// in lexicographical order.
func RegisteredInterpreterNames() []string {
	names := maps.Keys(GetAllRegisteredInterpreters())
	slices.Sort(names)
	return names
}

// RegisterInterpreterFactory adds a factory to the registry. Registering nil
// factories or the same name twice fails.
func RegisterInterpreterFactory(name string, factory InterpreterFactory) error {
	key := strings.ToLower(name)
	if factory == nil {
		return fmt.Errorf("invalid initialization: cannot register nil-factory using `%s`", key)
	}
	interpreterRegistryLock.Lock()
	defer interpreterRegistryLock.Unlock()
	if _, found := interpreterRegistry[key]; found {
		return fmt.Errorf("invalid initialization: multiple factories registered for `%s`", key)
	}
	interpreterRegistry[key] = factory
	return nil
}

// MustRegisterInterpreterFactory is a variant of RegisterInterpreterFactory
// for init functions; it panics on failure.
func MustRegisterInterpreterFactory(name string, factory InterpreterFactory) {
	if err := RegisterInterpreterFactory(name, factory); err != nil {
		panic(err)
	}
}

var interpreterRegistry = map[string]InterpreterFactory{}

var interpreterRegistryLock sync.Mutex
