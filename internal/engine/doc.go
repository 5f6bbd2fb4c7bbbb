// SPDX-License-Identifier: MPL-2.0

// Package engine defines the execution engines that run module bodies for the
// loader, the registry that selects an engine by file extension, and the
// conversion of engine-native export values into plain Go values.
//
// Each engine lives in its own subpackage (js, lua, shell, wasm, data).
package engine
