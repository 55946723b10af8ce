package classifier

import (
	"fmt"
	"strings"
)

func relevancePrompt(text string) string {
	return fmt.Sprintf(`Analyze this post. Return ONLY 'YES' if it contains factual claims, news, or meaningful opinions/discussions.
Return 'NO' if it is obvious spam, simple greeting, or pure emotion without context.
Post: %q`, text)
}

func auditPrompt(today, text string, hasImage bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Current Date: %s\nROLE: OSINT Analyst.\nTASK: Verify the content veracity strictly.\n\n", today)

	if hasImage {
		b.WriteString(`PHASE 1: VISUAL EVIDENCE EXTRACTION
- TRANSCRIPTION: If the image contains text, transcribe it EXACTLY.
- ANALYSIS: Describe visual context.
`)
	} else {
		b.WriteString(`PHASE 1: CLAIM EXTRACTION
- Identify the core claim. Is it a subjective feeling or a checkable fact?
`)
	}

	b.WriteString(`
PHASE 2: CROSS-VERIFICATION (Web Search)
- Search for the CORE CLAIM found in Phase 1.
- If the post relays a technical, scientific or historical fact second hand, verify the FACT. If the fact is correct, the post is TRUE.
- If the post relays private gossip or a subjective feeling, it is unverifiable. Mark as MIXED.

PHASE 3: FINAL VERDICT
Output EXACTLY one label at the start:

- [VERDICT: TRUE]: confirmed facts or news, including technical claims verified by search.
- [VERDICT: FALSE]: proven misinformation, fake news or hoax.
- [VERDICT: MIXED]: personal stories, unverifiable rumors, subjective opinions without factual basis.

Then provide your reasoning.
`)
	fmt.Fprintf(&b, "\nPost Text Metadata: %q", text)
	return b.String()
}

func briefingPrompt(today string, items []string) string {
	return fmt.Sprintf(`Current Date: %[1]s
ROLE: Chief Intelligence Analyst.

INPUT DATA FORMAT:
Each item starts with a status tag: [TRUE], [FALSE], or [MIXED], followed by the platform and text.

TASK:
Write a structured "Daily Intelligence Briefing" based on the input.

GUIDELINES:
1. Categorize by topic: group similar posts (Tech, Politics, Culture).
2. Status awareness:
   - Use items marked [TRUE] as the foundation for factual updates.
   - Use items marked [FALSE] for a "Misinformation Watch" section that briefly debunks them.
   - Use items marked [MIXED] to reflect public sentiment, rumors, or unverified discussions.
3. Citations: when mentioning a specific event, link to the source if available in the text.
4. Tone: professional and objective.
5. Structure:
   # Daily Intelligence Briefing (%[1]s)

   ## Key Developments (Factual)
   ...

   ## Public Sentiment & Discussions (Mixed/Anecdotal)
   ...

   ## Misinformation Watch (Debunked)
   ... (Only if [FALSE] items exist)

INPUT DATA:
%[2]s`, today, strings.Join(items, "\n\n"))
}

func questionPrompt(today, contextText, question string) string {
	return fmt.Sprintf("Current Date: %s\nContext:\n%s\n\nQuestion: %s", today, contextText, question)
}
