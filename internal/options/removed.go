package options

// Removed describes an option that existed in an earlier major version:
// the migration guidance and the major version it was removed in.
type Removed struct {
	Message string
	Version int
}

// DefaultRemoved is the standard removed-option table. Callers may supply
// their own table on the Validator to extend or replace it.
var DefaultRemoved = map[string]Removed{
	"auxiliaryComment": {
		Message: "use `auxiliaryCommentBefore` or `auxiliaryCommentAfter`",
		Version: 6,
	},
	"blacklist": {
		Message: "put the specific transforms you want in the `plugins` option",
		Version: 6,
	},
	"breakConfig": {
		Message: "this option is no longer necessary",
		Version: 6,
	},
	"externalHelpers": {
		Message: "use the `external-helpers` plugin instead",
		Version: 6,
	},
	"extra": {
		Message: "pass options directly to the plugin that needs them",
		Version: 6,
	},
	"jsxPragma": {
		Message: "use the `pragma` option in the jsx transform plugin",
		Version: 6,
	},
	"loose": {
		Message: "specify the `loose` option per plugin",
		Version: 6,
	},
	"metadataUsedHelpers": {
		Message: "helpers are tracked automatically, this option is no longer needed",
		Version: 6,
	},
	"modules": {
		Message: "use the corresponding module transform plugin in the `plugins` option",
		Version: 6,
	},
	"nonStandard": {
		Message: "use the flow and jsx syntax plugins",
		Version: 6,
	},
	"optional": {
		Message: "put the specific transforms you want in the `plugins` option",
		Version: 6,
	},
	"sourceMapName": {
		Message: "use the `sourceMapTarget` option",
		Version: 6,
	},
	"stage": {
		Message: "use the corresponding stage preset",
		Version: 6,
	},
	"whitelist": {
		Message: "put the specific transforms you want in the `plugins` option",
		Version: 6,
	},
}
