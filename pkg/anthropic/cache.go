package anthropic

// BuildCachedSystemBlocks constructs a system block with a cache breakpoint.
// Follow-up questions about the same session reuse the cached context.
func BuildCachedSystemBlocks(text string) []SystemBlock {
	return []SystemBlock{
		{
			Text:         text,
			CacheControl: &CacheControl{TTL: "5m"},
		},
	}
}
