package model

const defaultMaxRelationDepth = 3

// resolveMaxDepth returns an effective depth limit for a relation walk.
// Priority: relation.max_depth > configured limit > defaultMaxRelationDepth.
// The second return value indicates that the default value was used.
func resolveMaxDepth(relMax, configured int) (int, bool) {
	if relMax > 0 {
		return relMax, false
	}
	if configured > 0 {
		return configured, false
	}
	return defaultMaxRelationDepth, true
}
