package mcpserver

// PlanFormatContract describes the Markdown plan format that LLM consumers
// should follow when creating plans.
const PlanFormatContract = `# Laguz Plan Format Contract

A plan is a Markdown document in the journal. Its frontmatter declares the
markers it targets and measurable goals; the body is free text.

## Structure

` + "```" + `markdown
---
title: Lipid reset                  # OPTIONAL – defaults to the file name
start: 2024-03-01                   # OPTIONAL – YYYY-MM-DD
target: 2024-06-01                  # OPTIONAL – YYYY-MM-DD, plan end date
markers: [ldl, apob]                # OPTIONAL – catalog marker IDs
goals:                              # OPTIONAL – list of goals
  - marker: ldl                     # REQUIRED – catalog marker ID
    direction: lower                # REQUIRED – higher | lower | range
    target: 2.6                     # REQUIRED – finite number
  - id: tsh-band                    # OPTIONAL – stable ID, derived when empty
    marker: tsh
    direction: range
    target: 1.0                     # lower bound for range goals
    upper: 2.5                      # REQUIRED for range, must be > target
---

Body text in standard Markdown.
` + "```" + `

## Rules

1. **Dates** are YYYY-MM-DD (RFC 3339 is also accepted). An unparseable date rejects the whole document.
2. **Goals** use catalog marker IDs; call ` + "`" + `list_markers` + "`" + ` for the list.
3. **higher** goals are met when the latest value is >= target; **lower** when <= target;
   **range** when target <= value <= upper.
4. **File paths** end with ` + "`" + `.md` + "`" + `, use forward slashes, and must not be under ` + "`" + `reports/` + "`" + `.
5. **Encoding** is UTF-8 with a trailing newline.

## Lab reports

- Upload PDFs or scans via the ` + "`" + `upload_report` + "`" + ` tool. It returns a ` + "`" + `markdown_link` + "`" + ` field ready to paste into the plan body.
- Reports are stored flat in ` + "`" + `reports/` + "`" + ` and served from ` + "`" + `/api/reports/<filename>` + "`" + `.
- Supported formats: pdf, png, jpg, jpeg, webp.
`
