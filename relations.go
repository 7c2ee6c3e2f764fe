package lattice

// Relation names. A relation labels one edge; a permission is the
// capability being checked and maps to a set of acceptable relations.
// Permissions only widen through explicit relation sets, never narrow.
const (
	RelationDirectOwner = "direct_owner"
	RelationOwner       = "owner-of"
	RelationEditor      = "editor-of"
	RelationViewer      = "viewer-of"

	RelationMember = "member-of"
	RelationPart   = "part-of"

	RelationParent = "parent-of"

	RelationSharedOwner  = "shared-owner"
	RelationSharedEditor = "shared-editor"
	RelationSharedViewer = "shared-viewer"
)

// Permission names checked by callers.
const (
	PermissionOwner  = "owner-of"
	PermissionEditor = "editor-of"
	PermissionViewer = "viewer-of"
)

// permissionRelations is the static table resolving a permission to the
// relations that satisfy it. Ownership satisfies everything; editing
// satisfies viewing; viewing satisfies only itself.
var permissionRelations = map[string][]string{
	PermissionOwner: {
		RelationOwner, RelationDirectOwner, RelationSharedOwner,
	},
	PermissionEditor: {
		RelationOwner, RelationDirectOwner, RelationSharedOwner,
		RelationEditor, RelationSharedEditor,
	},
	PermissionViewer: {
		RelationOwner, RelationDirectOwner, RelationSharedOwner,
		RelationEditor, RelationSharedEditor,
		RelationViewer, RelationSharedViewer,
	},
}

// groupRelations are the membership edges followed from the subject side
// during traversal: the subject inherits whatever its groups hold.
var groupRelations = []string{RelationMember, RelationPart}

// AcceptableRelations returns the relation set satisfying a permission.
// Unknown permissions resolve to the permission name itself, so custom
// relations still check as exact matches.
func AcceptableRelations(permission string) []string {
	if rels, ok := permissionRelations[permission]; ok {
		return rels
	}
	return []string{permission}
}

// ownerRelations marks the relations on the longest cache TTL tier.
var ownerRelations = map[string]struct{}{
	RelationOwner:       {},
	RelationDirectOwner: {},
	RelationSharedOwner: {},
}

// editorRelations marks the relations on the medium cache TTL tier.
var editorRelations = map[string]struct{}{
	RelationEditor:       {},
	RelationSharedEditor: {},
}
