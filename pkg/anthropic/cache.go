package anthropic

// BuildCachedSystemBlocks constructs system content blocks with a cache
// breakpoint. The chat system prompt is identical across requests, so
// caching it cuts input cost on every turn after the first.
func BuildCachedSystemBlocks(text string) []SystemBlock {
	return []SystemBlock{
		{
			Text: text,
			CacheControl: &CacheControl{
				TTL: "5m",
			},
		},
	}
}
