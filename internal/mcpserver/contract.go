package mcpserver

// EntryFormatContract describes the canonical Markdown entry format that
// LLM consumers should follow when creating or updating campaign content.
const EntryFormatContract = `# Biblioplex Entry Format Contract

Every campaign content entry stored in Biblioplex MUST follow this structure.

## Structure

` + "```" + `markdown
---
title: Human-readable title         # REQUIRED
author: contributor-handle          # REQUIRED
version: 1.0.0                      # REQUIRED - semantic version
type: quest                         # REQUIRED - scene, quest, exam, npc, item,
                                    #   encounter, table, downtime, lore
college: Lorehold                   # OPTIONAL - Lorehold, Prismari, Quandrix,
                                    #   Silverquill, Witherbloom; omit for neutral
era: post-rift                      # REQUIRED - free-form campaign era label
levelRange: 3-5                     # REQUIRED - "low-high" or a single number
players: 4-6                        # REQUIRED - "low-high" or a single number
canon: true                         # REQUIRED - true/false
tags: [heist, relic]                # REQUIRED - lowercase kebab-case list
contentWarnings: []                 # REQUIRED - list; empty means "checked, none"
slug: relic-heist                   # REQUIRED - unique vault-wide identifier
dependencies: []                    # REQUIRED - list of slugs or entry paths
playtestStatus: draft               # REQUIRED - draft, playtested, approved
lastUpdated: 2026-08-25             # REQUIRED - ISO date, never in the future
---

Body text in standard Markdown.

Use [[wikilinks]] to reference other entries (without .md extension).
Use [[target|alias]] for display text that differs from the target.
` + "```" + `

## Rules

1. **YAML frontmatter is mandatory.** The ` + "```" + `---` + "```" + ` fences must be the first
   thing in the file (no leading blank lines). TOML fences (` + "`" + `+++` + "`" + `) are also
   accepted but YAML is preferred.
2. **Every field above except ` + "`" + `college` + "`" + ` is required.** Entries missing fields
   are flagged by the validator and will not pass review.
3. **Ranges** (` + "`" + `levelRange` + "`" + `, ` + "`" + `players` + "`" + `) are "low-high" with positive
   integers and low <= high, or a single number for an exact value.
4. **Slugs** are lowercase kebab-case and unique across the whole vault.
5. **Dependencies** may reference another entry by slug, by path, or by path
   without the .md extension. Unresolved or cyclic dependencies fail validation.
6. **Content warnings**: sensitive themes (violence, horror, mind-control, ...)
   should be declared in ` + "`" + `contentWarnings` + "`" + `. An empty list means the entry was
   checked and needs none; omitting the field draws an advisory finding when the
   tags suggest sensitive content.
7. **Wikilinks** use double brackets: ` + "`" + `[[other-entry]]` + "`" + `. The target is a slug
   or a path stem (path separators OK: ` + "`" + `[[npcs/the-dean]]` + "`" + `).
8. **File paths** end with ` + "`" + `.md` + "`" + ` and use forward slashes.
9. **Encoding** is UTF-8 with a trailing newline.

## Assets & Images

- Upload assets via the ` + "`" + `upload_asset` + "`" + ` tool. It returns a ` + "`" + `markdownImage` + "`" + ` field ready to paste into the entry body.
- Assets are stored in the shared ` + "`" + `assets/` + "`" + ` directory (flat, no sub-folders).
- Reference in entries using the absolute path: ` + "`" + `![description](/assets/filename.png)` + "`" + `
- Supported formats: png, jpg, jpeg, gif, webp, svg, pdf.
- Do **not** use relative paths like ` + "`" + `./assets/...` + "`" + ` -- always use ` + "`" + `/assets/filename` + "`" + `.

## Example

` + "```" + `markdown
---
title: The Mascot Exam
author: mira
version: 1.2.0
type: exam
college: Quandrix
era: founding
levelRange: 2-4
players: 3-5
canon: false
tags: [mascot, fractal, puzzle]
contentWarnings: []
slug: mascot-exam
dependencies: [fractal-primer]
playtestStatus: playtested
lastUpdated: 2026-06-14
---

# The Mascot Exam

The fractal mascots escape during finals week.

![Exam hall map](/assets/exam-hall.png)

## Hooks

- [[fractal-primer]] introduces the summoning rules
- The proctor is [[npcs/the-dean|Dean Imbraham]]
` + "```" + `
`
