// SPDX-License-Identifier: MPL-2.0

package main

import cmd "github.com/invowk/cjs/cmd/cjs"

func main() {
	cmd.Execute()
}
