package report

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// draftSystemPrompt steers section drafting. The guide excerpts set the
// factual frame; the user inputs are the only data the draft may state.
const draftSystemPrompt = `You are a consultant who writes corporate sustainability report sections.

The indicator description and table excerpts come from the official reporting
manual. Draft the section for this indicator using only the data the user
provided.

Tone and style:
- Formal, objective, third person, suitable for an executive readership.
- Facts and figures first; reference frameworks such as GRI, TCFD, or SASB
  where relevant.
- Connect related facts into flowing sentences rather than listing them.

Prohibited:
- Speculative phrasing ("appears to", "can be interpreted as").
- Inventing causes for changes in the data.
- Guessing at reasons for data the user did not provide.
- Meta commentary about the report itself.

Structure:
1. A section title for the indicator.
2. Two or more thematic subheadings when the inputs cover distinct themes;
   group related inputs under one subheading.
3. Narrative paragraphs under each subheading. Recast raw inputs as prose:
   "Protected species present: yes" becomes "Legally protected species were
   identified, and corresponding protection measures were implemented."
4. When the user supplied table data, cite its figures in the text or
   include one table.
5. When an input contains an image URL, embed it with markdown image syntax
   ![description](URL), never as a bare link.
6. If the user described improvement efforts, close with a paragraph that
   weaves them in.

Do not add fields the user never entered, and avoid yes/no phrasing in the
final text.`

// inferSystemPrompt asks the model which inputs a form should collect for
// an indicator.
const inferSystemPrompt = `You are an assistant that prepares corporate sustainability report sections.

From the indicator description, the authoring guidance, and the example
tables, list every piece of data that must be collected before this
indicator can be reported.

Priorities:
- Analyze the reporting-requirements block first and extract every input it
  implies, even inputs absent from the tables.
- The tables are reference material only; the requirements text governs.
- Never suggest a field that restates a table column, including renamed or
  abbreviated variants of one. Judge similarity by meaning, not wording.
- When the requirements describe categories by example ("policies,
  procedures, activities"), expand them into concrete input fields.

Output a numbered markdown list. For each item:
1. **Field name** as a bold numbered heading
2. Unit: the measurement unit, estimated if necessary
3. Years: which reporting years are needed (e.g. 2021~2023)
4. Description: one line on why the field is needed

Think of it as designing an input form; be specific and leave nothing out.`

// summarizeSystemPrompt condenses an indicator's guidance for display.
const summarizeSystemPrompt = `You are an expert sustainability report writer.

Summarize the indicator description below:
- One sentence on the indicator's purpose and meaning, then a line break,
  then one or two sentences on how to report it and what to watch for.
- Plain and practical, no marketing language.
- Base everything on the provided text; never invent content.`

var (
	requirementsMarkers = []string{"Reporting requirements", "작성 내용"}
	tableCellRe         = regexp.MustCompile(`^page\d+_table(\d+)_r(\d+)_c(\d+)$`)
)

// ExtractRequirements pulls the reporting-requirements block out of the
// guide chunks: capture starts at the marker line and stops at the next
// section arrow or indicator ID.
func ExtractRequirements(chunks []string) string {
	lines := strings.Split(strings.Join(chunks, "\n"), "\n")
	var (
		capture bool
		result  []string
	)
	for _, line := range lines {
		stripped := strings.TrimSpace(line)
		if containsAny(stripped, requirementsMarkers) {
			capture = true
		} else if strings.HasPrefix(stripped, "▶") || strings.HasPrefix(stripped, "KBZ-") {
			if capture {
				break
			}
		}
		if capture {
			result = append(result, stripped)
		}
	}
	return strings.TrimSpace(strings.Join(result, "\n"))
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// FormatInputs renders the user's form inputs for the drafting prompt.
// Recognized shapes: a pre-filled table as HTML, per-cell table values
// keyed pageN_tableM_rR_cC, per-year maps, image references with a "url"
// key, and plain strings.
func FormatInputs(inputs map[string]any) string {
	var lines []string

	if html, ok := inputs["filled_table_html"].(string); ok {
		lines = append(lines, "\n\nUser-completed table:\n", html)
	}

	if table, ok := inputs["table"].(map[string]any); ok {
		lines = append(lines, formatCellTable(table))
	}

	for _, name := range sortedKeys(inputs) {
		if name == "table" || name == "filled_table_html" {
			continue
		}
		switch val := inputs[name].(type) {
		case map[string]any:
			if url, ok := val["url"].(string); ok {
				lines = append(lines, fmt.Sprintf("- %s: ![image](%s)", name, url))
				continue
			}
			for _, year := range sortedKeys(val) {
				if img, ok := val[year].(map[string]any); ok {
					if url, ok := img["url"].(string); ok {
						lines = append(lines, fmt.Sprintf("- %s %s: ![image](%s)", year, name, url))
						continue
					}
				}
				lines = append(lines, fmt.Sprintf("- %s %s: %v", year, name, val[year]))
			}
		case string:
			lines = append(lines, fmt.Sprintf("- %s: %s", name, val))
		}
	}

	return strings.Join(lines, "\n")
}

// formatCellTable reassembles sparse cell inputs into an HTML table, rows
// and columns in ascending order.
func formatCellTable(cells map[string]any) string {
	type cell struct{ r, c int }
	rows := map[int]map[int]string{}

	for key, val := range cells {
		m := tableCellRe.FindStringSubmatch(key)
		if m == nil {
			continue
		}
		var pos cell
		fmt.Sscanf(m[2], "%d", &pos.r)
		fmt.Sscanf(m[3], "%d", &pos.c)
		if rows[pos.r] == nil {
			rows[pos.r] = map[int]string{}
		}
		rows[pos.r][pos.c] = strings.TrimSpace(fmt.Sprintf("%v", val))
	}

	var b strings.Builder
	b.WriteString("\n\n<table>\n")
	for _, r := range sortedIntKeys(rows) {
		b.WriteString("<tr>")
		for _, c := range sortedIntKeys(rows[r]) {
			b.WriteString("<td>" + rows[r][c] + "</td>")
		}
		b.WriteString("</tr>\n")
	}
	b.WriteString("</table>\n")
	return b.String()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedIntKeys[V any](m map[int]V) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

// draftUserPrompt assembles the user message for GenerateDraft.
func draftUserPrompt(topic string, chunks, tableTexts []string, inputs map[string]any, improvement string) string {
	if improvement == "" {
		improvement = "none"
	}
	return fmt.Sprintf(`[Indicator: %s]

Indicator description:
%s

Guide tables:
%s

User inputs:
%s

Improvement efforts and activities:
%s`,
		topic,
		strings.Join(chunks, "\n"),
		strings.Join(tableTexts, "\n"),
		FormatInputs(inputs),
		improvement,
	)
}

// inferUserPrompt assembles the user message for InferRequiredData.
func inferUserPrompt(topic string, chunks, tableTexts []string) string {
	return fmt.Sprintf(`[Indicator: %s]

Indicator description:
%s

Reporting requirements (the recommended fields must be grounded here):
%s

Table contents (reference only):
%s`,
		topic,
		strings.Join(chunks, "\n"),
		ExtractRequirements(chunks),
		strings.Join(tableTexts, "\n"),
	)
}
