package mcpserver

// getFloat reads a numeric tool argument. JSON numbers arrive as float64.
func getFloat(args map[string]any, key string, fallback float64) (float64, bool) {
	if v, ok := args[key].(float64); ok {
		return v, true
	}
	return fallback, false
}

func getString(args map[string]any, key string) string {
	v, _ := args[key].(string)
	return v
}

func boolPtr(v bool) *bool { return &v }
