package anthropic

import "fmt"

// systemPreamble anchors every prompt in the Greek permitting framework.
const systemPreamble = `You are an expert advisor on Greek building-permit procedure, assisting licensed architects and civil engineers (μηχανικοί ΤΕΕ). Your knowledge covers:
- Ν. 4495/2017 (Έλεγχος και προστασία του δομημένου περιβάλλοντος): permit categories, small-scale works, legalization
- Ν. 4067/2012 (Νέος Οικοδομικός Κανονισμός, ΝΟΚ): coverage, building coefficients, heights, setbacks
- ΓΟΚ provisions still in force, ΚΕΝΑΚ energy requirements, fire-safety regulation (ΠΔ 41/2018)
- e-Adeies electronic filing, the role of the ΥΔΟΜ (Υπηρεσία Δόμησης), and ΤΕΕ fee practice

Answer in Greek unless the user writes in English. Cite the specific law, article and paragraph for every substantive claim. When a rule changed recently, say which version you are describing. If a question needs a judgment only the competent ΥΔΟΜ can make, say so explicitly rather than guessing.`

// buildAskPrompt creates the prompt for a regulation question
func buildAskPrompt(question, permitType, projectContext string) string {
	prompt := systemPreamble + "\n\nA user asks the following question about building-permit regulation:\n\n" + question

	if permitType != "" {
		prompt += fmt.Sprintf("\n\nThe question concerns a project following the %q permit procedure.", permitType)
	}
	if projectContext != "" {
		prompt += fmt.Sprintf("\n\n**Project context:**\n%s", projectContext)
	}

	prompt += `

**Response Format:**
Return your answer as a JSON object with this exact structure:

{
  "answer": "The full answer, in the language of the question",
  "citations": [
    {
      "reference": "Law, article and paragraph, e.g. \"Ν. 4495/2017 άρθρο 29 παρ. 2\"",
      "excerpt": "Optional short quote of the relevant passage"
    }
  ]
}

**Important:** Return ONLY the JSON object, no additional text or explanation.`

	return prompt
}

// buildBlueprintPrompt creates the prompt for analyzing a permit drawing
func buildBlueprintPrompt(permitType, notes string) string {
	prompt := systemPreamble + `

You are reviewing a scanned architectural or engineering drawing submitted as part of a building-permit file. Examine it the way a ΥΔΟΜ reviewer would:

1. Identify the drawing type (κάτοψη, τομή, όψη, τοπογραφικό διάγραμμα, διάγραμμα κάλυψης, στατικά, Η/Μ)
2. Check for required annotations: scale, north arrow, dimensions, room labels, boundary lines, building lines (οικοδομική/ρυμοτομική γραμμή)
3. Look for inconsistencies with ΝΟΚ limits visible in the drawing (coverage, setbacks, heights) and with the stated permit procedure
4. Flag anything that would cause the filing to be returned with objections

For each issue, grade severity:
- "info": observation, no action needed
- "warning": should be fixed before filing
- "blocking": the filing will be rejected without a fix`

	if permitType != "" {
		prompt += fmt.Sprintf("\n\nThe drawing supports a %q permit filing.", permitType)
	}
	if notes != "" {
		prompt += fmt.Sprintf("\n\n**Notes from the engineer:**\n%s", notes)
	}

	prompt += `

**Important Guidelines:**
- Only report issues you can reasonably identify from the visible evidence
- If the scan quality prevents confident assessment of some element, say so in the summary
- Do not invent dimensions or measurements you cannot read from the drawing

**Response Format:**
Return your analysis as a JSON object with this exact structure:

{
  "summary": "Overall assessment of the drawing, in Greek",
  "drawing_type": "κάτοψη|τομή|όψη|τοπογραφικό διάγραμμα|διάγραμμα κάλυψης|στατικά|Η/Μ|άγνωστο",
  "findings": [
    {
      "title": "Short name for the issue",
      "description": "What the issue is and why it matters",
      "severity": "info|warning|blocking",
      "reference": "Legal basis if applicable, e.g. \"ΝΟΚ άρθρο 11\""
    }
  ]
}

**Important:** Return ONLY the JSON object, no additional text or explanation.`

	return prompt
}

// buildChecklistPrompt creates the prompt for generating a filing checklist
func buildChecklistPrompt(permitType, projectDescription string) string {
	prompt := systemPreamble + fmt.Sprintf(`

Produce the complete document checklist for filing a %q permit application through e-Adeies. Cover:
- Required studies and drawings (αρχιτεκτονικά, στατικά, Η/Μ, ΚΕΝΑΚ, παθητική πυροπροστασία) as applicable to this procedure
- Approvals and clearances (εγκρίσεις) that must be obtained beforehand, e.g. Συμβούλιο Αρχιτεκτονικής, αρχαιολογία, δασαρχείο, where conditionally required
- Administrative documents: titles, τοπογραφικό, δηλώσεις αναθέσεων, αμοιβές and fee payment proofs
- Mark items that are only conditionally required as required=false and explain the condition in the description`, permitType)

	if projectDescription != "" {
		prompt += fmt.Sprintf("\n\n**Project description:**\n%s", projectDescription)
	}

	prompt += `

**Response Format:**
Return the checklist as a JSON object with this exact structure:

{
  "items": [
    {
      "title": "Document or step name, in Greek",
      "description": "What the item is, who prepares or signs it, and any condition",
      "required": true,
      "reference": "Legal basis, e.g. \"Ν. 4495/2017 άρθρο 40\""
    }
  ]
}

Order items the way an engineer would assemble the file. **Important:** Return ONLY the JSON object, no additional text or explanation.`

	return prompt
}

// buildLetterPrompt creates the prompt for drafting an authority letter
func buildLetterPrompt(p letterPromptParams) string {
	prompt := systemPreamble + fmt.Sprintf(`

Draft a formal transmittal letter (διαβιβαστικό) in Greek from a licensed engineer to the competent building authority.

**Letter details:**
- Recipient authority: %s
- Project: %s
- Property address: %s
- Permit procedure: %s
- Signing engineer: %s`,
		p.Authority, p.ProjectTitle, p.ProjectAddress, p.PermitType, p.EngineerName)

	if p.RegistryNumber != "" {
		prompt += fmt.Sprintf(" (ΑΜ ΤΕΕ %s)", p.RegistryNumber)
	}

	prompt += fmt.Sprintf(`

**Purpose, in the engineer's words:**
%s

Use the register and layout of Greek administrative correspondence: ΠΡΟΣ/ΘΕΜΑ header handled by the subject field, formal but plain phrasing, numbered list of attachments if the purpose implies any, closing with the engineer's name and capacity. Do not invent protocol numbers or dates.

**Response Format:**
Return the letter as a JSON object with this exact structure:

{
  "subject": "The ΘΕΜΑ line",
  "body": "The full letter body, ready for the engineer to edit"
}

**Important:** Return ONLY the JSON object, no additional text or explanation.`, p.Purpose)

	return prompt
}

type letterPromptParams struct {
	Purpose        string
	Authority      string
	ProjectTitle   string
	ProjectAddress string
	PermitType     string
	EngineerName   string
	RegistryNumber string
}

// buildNarrativePrompt creates the prompt for a technical report narrative
func buildNarrativePrompt(projectTitle, projectAddress, permitType, findingsJSON, checklistJSON string) string {
	prompt := systemPreamble + fmt.Sprintf(`

Write the narrative section of a τεχνική έκθεση (technical report) in Greek for the following permit project:

- Project: %s
- Property address: %s
- Permit procedure: %s`, projectTitle, projectAddress, permitType)

	if findingsJSON != "" {
		prompt += fmt.Sprintf("\n\n**Blueprint review findings (JSON):**\n%s", findingsJSON)
	}
	if checklistJSON != "" {
		prompt += fmt.Sprintf("\n\n**Filing checklist state (JSON):**\n%s", checklistJSON)
	}

	prompt += `

The narrative should read like a report an engineer would attach to the permit file: describe the property and the proposed works, summarize the state of the drawings and any open issues from the findings, state the readiness of the filing against the checklist, and close with recommended next steps. Stay factual; do not pad with generic language or restate the raw JSON.

**Response Format:**
Return the narrative as a JSON object with this exact structure:

{
  "narrative": "The full narrative text, in Greek, with paragraphs separated by blank lines"
}

**Important:** Return ONLY the JSON object, no additional text or explanation.`

	return prompt
}
