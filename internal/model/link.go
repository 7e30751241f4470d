package model

// SetDocSources installs the documentation-source chain computed by the
// processing pipeline.
func SetDocSources(ob ApiObject, sources []ApiObject) {
	ob.setDocSources(sources)
}

// RecordAlias registers an alias variable on the object its value resolves
// to. Called by the processing pipeline once names are resolvable.
func RecordAlias(target ApiObject, alias *Variable) {
	for _, existing := range target.Aliases() {
		if existing == alias {
			return
		}
	}
	target.addAlias(alias)
}

// Children returns the traversal children of an object: the member list for
// namespaces, nothing otherwise. This is the walk order used by the pipeline
// and the output renderers.
func Children(ob ApiObject) []ApiObject {
	if owner, ok := ob.(HasMembers); ok {
		return owner.Members()
	}
	return nil
}

// Walk applies fn to ob and every object beneath it, parents before members.
func Walk(ob ApiObject, fn func(ApiObject)) {
	fn(ob)
	for _, child := range Children(ob) {
		Walk(child, fn)
	}
}
