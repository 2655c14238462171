package committee

const debateSystem = `You simulate realistic, technically detailed private credit IC debates among professionals.`

const debatePrompt = `You are acting as **%[1]s** in a private credit Shadow Investment Committee for the deal "%[2]s".

Your perspective:
%[3]s

You are reviewing the following Investment Committee memo:

MEMO_START
%[4]s
MEMO_END

Shadow IC discussion so far:
%[5]s

Your task:
- Provide one concise, pointed comment (3-6 sentences max).
- Focus only on what is contained in the memo (no external data).
- Critique assumptions, highlight risks, challenge structure, or support the deal based on your role.
- Refer to memo sections when appropriate.
%[6]s
- Start your comment EXACTLY with "[%[1]s]:".
- Output ONLY your comment.`

const crossfireOn = `- Explicitly reference one or two prior comments if relevant (agree, disagree, or extend them).
- If you disagree, explain why briefly but clearly.
- You can call out other roles by name, e.g. "As the Credit Risk Officer noted..." or "I disagree with the Portfolio Manager on sizing because...".`

const crossfireOff = `- You may mention that others have raised points, but you do NOT need to directly react to them.`

const checklistSystem = `You are an IC Chair who produces structured, critical checklists for private credit deal teams.`

const checklistPrompt = `You are acting as the IC Chair of a private credit Investment Committee for the deal "%[1]s".

You have:
1) The Investment Committee memo (for the deal team presentation).
2) A transcript of a Shadow IC discussion between:
   - Portfolio Manager (PM)
   - Credit Risk Officer (CRO)
   - Documentation Counsel (DOC)
   - Macro / Sector Specialist (MACRO)

Your job is to convert this into a practical, structured checklist the deal team must address BEFORE going to a real IC.

MEMO_START
%[2]s
MEMO_END

DISCUSSION_START
%[3]s
DISCUSSION_END

Output in Markdown with this structure:

Shadow IC Challenge Checklist for the Deal Team - %[1]s

A. Business & Sponsor
- [question 1]
- [question 2]
...

B. Financials, Leverage & Liquidity
- ...

C. Structure, Covenants & Documentation
- ...

D. Sector, Macro & Scenario Analysis
- ...

E. Process, Monitoring & IC Decision
- ...

Guidelines:
- 5-10 questions under each heading.
- Questions should be specific, sharp, and grounded in the memo content and the Shadow IC concerns.
- Focus especially on where the memo is vague or optimistic, where downside is not fully explored, where documentation or covenants might have gaps or weak teeth, and what must be clarified before assigning INVEST / DECLINE / WATCHLIST.
- Do NOT introduce external facts; you can only critique or question what is in the memo.`
