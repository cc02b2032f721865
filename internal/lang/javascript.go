package lang

func init() {
	Languages["javascript"] = &Language{
		Name:                "javascript",
		Family:              Pattern,
		Extensions:          []string{".js", ".jsx", ".mjs", ".cjs"},
		ComponentExtensions: []string{".jsx"},
	}
	Languages["typescript"] = &Language{
		Name:                "typescript",
		Family:              Pattern,
		Extensions:          []string{".ts", ".tsx", ".mts", ".cts"},
		ComponentExtensions: []string{".tsx"},
	}
}
