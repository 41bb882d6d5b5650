// Package memory turns finished turns into knowledge graph episodes and reads the
// graph back as a short context outline for the agents.
package memory

import "slices"

const (
	EntityUser    = "User"
	EntityProduct = "Product"
	EntityIntent  = "Intent"
)

const (
	EdgeWants             = "WANTS"
	EdgeMentions          = "MENTIONS"
	EdgeLastViewedProduct = "LAST_VIEWED_PRODUCT"
	EdgeHasInCart         = "HAS_IN_CART"
	EdgeVariantOf         = "VARIANT_OF"
)

// edgeTypeMap lists the edges allowed between a source and a target entity type.
var edgeTypeMap = map[string][]string{
	edgeKey(EntityUser, EntityProduct):    {EdgeWants, EdgeMentions, EdgeLastViewedProduct, EdgeHasInCart},
	edgeKey(EntityUser, EntityIntent):     {EdgeWants},
	edgeKey(EntityIntent, EntityProduct):  {EdgeMentions},
	edgeKey(EntityProduct, EntityProduct): {EdgeVariantOf},
}

// exclusiveEdges may hold at most one valid edge per source node.
var exclusiveEdges = map[string]bool{
	EdgeLastViewedProduct: true,
}

func edgeKey(source, target string) string {
	return source + "|" + target
}

func EntityTypes() []string {
	return []string{EntityUser, EntityProduct, EntityIntent}
}

func EdgeTypes() []string {
	return []string{EdgeWants, EdgeMentions, EdgeLastViewedProduct, EdgeHasInCart, EdgeVariantOf}
}

// EdgeTypeMap returns a copy of the allowed edge map keyed "Source|Target".
func EdgeTypeMap() map[string][]string {
	out := make(map[string][]string, len(edgeTypeMap))
	for k, v := range edgeTypeMap {
		out[k] = slices.Clone(v)
	}
	return out
}

// AllowedEdge reports whether an edge name may connect the two entity types.
func AllowedEdge(sourceType, targetType, name string) bool {
	return slices.Contains(edgeTypeMap[edgeKey(sourceType, targetType)], name)
}

func IsExclusive(name string) bool {
	return exclusiveEdges[name]
}

func IsEntityType(t string) bool {
	return slices.Contains(EntityTypes(), t)
}
