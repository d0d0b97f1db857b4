package main

var requestVariants = []requestVariant{
	{Key: variantPlain, Header: "Chat", Aliases: []string{"chat"}},
	{Key: variantTools, Header: "Chat Tools", Aliases: []string{"tool", "chat_tools"}},
	{Key: variantTyped, Header: "Typed int16", Aliases: []string{"short", "structured"}},
}
