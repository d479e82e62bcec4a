package models

import (
	"regexp"
	"strings"
)

// Block is one node of the rich-text document. Its shape is owned by the
// editor; the client only reads text content and entry links out of it.
type Block map[string]any

const entryLinkType = "entryLink"

var wikiLink = regexp.MustCompile(`\[\[([^\[\]]+)\]\]`)

// PlainText flattens the text content of blocks and their children.
func PlainText(blocks []Block) string {
	var parts []string
	walkBlocks(blocks, func(b Block) {
		if s := inlineText(b["content"]); s != "" {
			parts = append(parts, s)
		}
	})
	return strings.Join(parts, "\n")
}

// LinkedEntryIDs returns the distinct ids referenced by entryLink blocks
// or inline content, and by [[id]] references in text, in first-seen order.
func LinkedEntryIDs(blocks []Block) []string {
	seen := map[string]struct{}{}
	var ids []string
	add := func(id string) {
		id = strings.TrimSpace(id)
		if id == "" {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	walkBlocks(blocks, func(b Block) {
		if id, ok := linkTarget(b); ok {
			add(id)
		}
		if items, ok := b["content"].([]any); ok {
			for _, item := range items {
				if m, ok := asMap(item); ok {
					if id, ok := linkTarget(m); ok {
						add(id)
					}
				}
			}
		}
		for _, m := range wikiLink.FindAllStringSubmatch(inlineText(b["content"]), -1) {
			add(m[1])
		}
	})
	return ids
}

// TextBlock is a convenience constructor for a paragraph block.
func TextBlock(text string) Block {
	return Block{
		"type": "paragraph",
		"content": []any{
			map[string]any{"type": "text", "text": text},
		},
	}
}

func walkBlocks(blocks []Block, fn func(Block)) {
	for _, b := range blocks {
		if b == nil {
			continue
		}
		fn(b)
		if children, ok := b["children"].([]any); ok {
			walkBlocks(toBlocks(children), fn)
		}
		if children, ok := b["children"].([]Block); ok {
			walkBlocks(children, fn)
		}
	}
}

func toBlocks(items []any) []Block {
	out := make([]Block, 0, len(items))
	for _, item := range items {
		if m, ok := asMap(item); ok {
			out = append(out, m)
		}
	}
	return out
}

func inlineText(content any) string {
	switch c := content.(type) {
	case string:
		return c
	case []any:
		var sb strings.Builder
		for _, item := range c {
			m, ok := asMap(item)
			if !ok {
				continue
			}
			if s, ok := m["text"].(string); ok {
				sb.WriteString(s)
			}
			if nested, ok := m["content"]; ok {
				sb.WriteString(inlineText(nested))
			}
		}
		return sb.String()
	}
	return ""
}

func linkTarget(m map[string]any) (string, bool) {
	if t, _ := m["type"].(string); t != entryLinkType {
		return "", false
	}
	props, ok := asMap(m["props"])
	if !ok {
		return "", false
	}
	id, ok := props["entryId"].(string)
	return id, ok && id != ""
}

// asMap accepts both decoded JSON objects and Blocks. msgpack decodes
// nested maps as map[string]interface{} too.
func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case Block:
		return m, true
	}
	return nil, false
}
