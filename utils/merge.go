package utils

// DeepMerge merges patch into source without mutating either. When both
// sides hold a map for the same key the maps merge recursively; any other
// patch value (scalars and arrays included) replaces the existing value
// outright.
func DeepMerge(source, patch map[string]interface{}) map[string]interface{} {
	result := make(map[string]interface{}, len(source)+len(patch))
	for k, v := range source {
		result[k] = v
	}
	for key, value := range patch {
		patchMap, patchIsMap := value.(map[string]interface{})
		if !patchIsMap {
			result[key] = value
			continue
		}
		if existing, ok := result[key].(map[string]interface{}); ok {
			result[key] = DeepMerge(existing, patchMap)
		} else {
			result[key] = DeepMerge(map[string]interface{}{}, patchMap)
		}
	}
	return result
}
