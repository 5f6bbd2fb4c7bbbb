// SPDX-License-Identifier: MPL-2.0

// Package platform holds operating system names and naming rules that differ
// between platforms, such as directory names Windows refuses to create.
package platform
