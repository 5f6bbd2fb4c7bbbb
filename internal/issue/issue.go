// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

const (
	ModuleNotFoundId Id = iota + 1
	InvalidPackageId
	UnsupportedModuleId
	ModuleExecutionFailedId
	ModuleReadFailedId
	ConfigLoadFailedId
	BundleFailedId
)

type (
	Id int

	MarkdownMsg string

	HttpLink string

	Renderer interface {
		Render(in string, stylePath string) (string, error)
	}

	// Issue is a catalog entry with Markdown guidance for a class of failure.
	Issue struct {
		id       Id
		mdMsg    MarkdownMsg
		docLinks []HttpLink
		extLinks []HttpLink
	}
)

var (
	render = glamour.Render

	moduleNotFoundIssue = &Issue{
		id: ModuleNotFoundId,
		mdMsg: `
# Module not found!

The identifier could not be resolved to a module.

## How identifiers are resolved
1. ` + "`/abs/path`" + ` and ` + "`./relative`" + ` identifiers are joined to the requiring module's directory
2. Bare identifiers are looked up in every ` + "`node_modules`" + ` directory from the requiring module up to the root
3. Then in each configured ` + "`search_paths`" + ` entry

Each candidate is tried as a file, with every configured extension, as a
directory with a ` + "`package.json`" + ` "main" field, and as a directory index.

## Things you can try:
- Run ` + "`cjs resolve <id> --from <file> -v`" + ` to see every path that was tried
- Check the ` + "`extensions`" + ` list in your configuration`,
		extLinks: []HttpLink{"https://nodejs.org/api/modules.html#all-together"},
	}

	invalidPackageIssue = &Issue{
		id: InvalidPackageId,
		mdMsg: `
# Invalid package.json!

A directory module has a ` + "`package.json`" + ` that is not valid JSON.

## Things you can try:
- Validate the file with a JSON linter
- Only the ` + "`main`" + ` field is used; remove the file if the package uses ` + "`index.js`",
	}

	unsupportedModuleIssue = &Issue{
		id: UnsupportedModuleId,
		mdMsg: `
# No engine for this module!

The module resolved, but no execution engine handles its file extension.

## Supported extensions
- ` + "`.js`, `.cjs`" + ` (JavaScript)
- ` + "`.lua`" + ` (Lua)
- ` + "`.sh`" + ` (POSIX shell)
- ` + "`.wasm`" + ` (WebAssembly)
- ` + "`.json`, `.toml`, `.yaml`, `.yml`, `.cue`" + ` (data)

## Things you can try:
- Check that the engine is not listed in ` + "`engines.disabled`" + `
- Rename the file or require it with an explicit supported extension`,
	}

	moduleExecutionFailedIssue = &Issue{
		id: ModuleExecutionFailedId,
		mdMsg: `
# Module execution failed!

A module threw an error, exited with a non-zero status or failed to compile.
The failed module and every module that was loading it were removed from the
cache, so requiring it again will re-run it.

## Things you can try:
- Re-run with ` + "`-v`" + ` to see the full error chain and load trace
- Run the failing module directly with ` + "`cjs run <file>`",
	}

	moduleReadFailedIssue = &Issue{
		id: ModuleReadFailedId,
		mdMsg: `
# Module could not be read!

The module was resolved but reading its contents failed.

## Things you can try:
- Check file permissions
- If running from a bundle, re-pack it with ` + "`cjs bundle`",
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

The configuration file could not be parsed or did not match the schema.

## Things you can try:
- Run ` + "`cjs config path`" + ` to see which file is used
- Run ` + "`cjs config dump`" + ` for a valid starting point
- Check ` + "`CJS_*`" + ` environment variables for invalid values`,
	}

	bundleFailedIssue = &Issue{
		id: BundleFailedId,
		mdMsg: `
# Bundle error!

The module bundle could not be created or opened.

## Things you can try:
- Check that the ` + "`--include`" + ` patterns match files under the directory
- Make sure the bundle file was created by ` + "`cjs bundle`",
	}

	issues = map[Id]*Issue{
		moduleNotFoundIssue.Id():        moduleNotFoundIssue,
		invalidPackageIssue.Id():        invalidPackageIssue,
		unsupportedModuleIssue.Id():     unsupportedModuleIssue,
		moduleExecutionFailedIssue.Id(): moduleExecutionFailedIssue,
		moduleReadFailedIssue.Id():      moduleReadFailedIssue,
		configLoadFailedIssue.Id():      configLoadFailedIssue,
		bundleFailedIssue.Id():          bundleFailedIssue,
	}
)

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

// Render renders the guidance as terminal Markdown using the glamour style at
// stylePath ("dark", "light", "notty" or a JSON style file).
func (i *Issue) Render(stylePath string) (string, error) {
	extraMd := ""
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		extraMd += "\n\n## See also:\n"
		for _, link := range i.docLinks {
			extraMd += "- <" + string(link) + ">\n"
		}
		for _, link := range i.extLinks {
			extraMd += "- <" + string(link) + ">\n"
		}
	}
	return render(string(i.mdMsg)+extraMd, stylePath)
}

// Values returns every catalog entry ordered by Id.
func Values() []*Issue {
	out := maps.Values(issues)
	slices.SortFunc(out, func(a, b *Issue) int { return int(a.id) - int(b.id) })
	return out
}

// Get returns the catalog entry for id, or nil.
func Get(id Id) *Issue {
	return issues[id]
}
