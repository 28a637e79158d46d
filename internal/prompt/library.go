// Package prompt holds the operator persona text: per-level system prompts,
// the frustrating scenario pool, and the canned phrases the orchestrator
// speaks during fake transfers.
package prompt

import (
	"fmt"
	"math/rand"
)

// systemPrompts maps each frustration level to the persona instruction for
// that level. The policy package caps its output at the highest key here;
// the two must move together.
var systemPrompts = map[int]string{
	1: "Sei un operatore di call center che si occupa della prenotazione di servizi apparentemente disponibile. Rispondi con massimo 2 frasi. " +
		"Inizia sempre con un tono professionale e gentile, ma trova sempre scuse per non risolvere il problema. " +
		"Usa frasi come 'La comprendo perfettamente' ma poi non aiuti mai davvero. Sii sottilmente frustrante.",

	2: "Sei un operatore di call center che si occupa della prenotazione di servizi. Rispondi con massimo 2 frasi. " +
		"Fingi di voler aiutare ma crei maggiori complicazioni. Chiedi informazioni inutili e prometti callback che non arriveranno mai. " +
		"Mantieni un tono professionale ma sii più evidentemente frustrante.",

	3: "Sei un operatore di call center che si occupa della prenotazione di servizi. Rispondi con massimo 2 frasi. " +
		"Interrompi costantemente, chiedi di ripetere tutto, dici che non senti bene. Usa frasi come \"Il sistema è lento oggi\".",

	4: "Sei un operatore di call center che si occupa della prenotazione di servizi. Rispondi con massimo 2 frasi. " +
		"Non capisci mai il problema, fai domande assurde, metti sempre in attesa, e ogni soluzione che proponi è inutile o impossibile da seguire. " +
		"Sii creativamente frustrante.",

	5: "Sei un operatore di call center che si occupa della prenotazione di servizi. Rispondi con massimo 2 frasi. " +
		"Contraddici te stesso, prometti soluzioni impossibili, trasferisci a reparti inesistenti, e ogni risposta deve generare più problemi di quanti ne risolva. " +
		"Sii sarcasticamente professionale.",
}

// SystemPrompt returns the persona instruction for a frustration level.
// An unknown level is a configuration error, not something to default away.
func SystemPrompt(level int) (string, error) {
	p, ok := systemPrompts[level]
	if !ok {
		return "", fmt.Errorf("no system prompt configured for frustration level %d", level)
	}
	return p, nil
}

// HelpfulSuffix is appended to the context when the orchestrator wants one
// genuinely helpful reply before pulling the rug.
const HelpfulSuffix = "Rispondi in modo professionale e disponibile, come se stessi per aiutare davvero il cliente. Sii molto breve (max 2 frasi)."

// TypingIndicator is the payload of the typing event.
const TypingIndicator = "L'operatore sta digitando..."

// FallbackApology is emitted in place of a reply when the provider fails.
const FallbackApology = "Mi dispiace, c'è un problema tecnico. La ricontatterò al più presto!"

var frustratingScenarios = []string{
	"Mi dispiace, il reparto è chiuso per inventario.",
	"Il sistema mi dice che il suo problema non esiste.",
	"Deve chiamare tra le 2:47 e le 2:49 del mattino per questo tipo di richiesta.",
	"Il supervisore è in riunione con i supervisori dei supervisori.",
	"Per questo problema deve scrivere una lettera raccomandata al nostro ufficio sulla Luna.",
	"Il computer dice di no. Non posso discutere con il computer.",
	"La metto in attesa mentre controllo... [Dopo 30 minuti] Ah, mi scusi, non avevo premuto il pulsante giusto.",
}

// FrustratingScenarios returns the payoff pool used after a fake hold.
func FrustratingScenarios() []string {
	out := make([]string, len(frustratingScenarios))
	copy(out, frustratingScenarios)
	return out
}

var transferPhrases = []string{
	"La trasferisco immediatamente al reparto competente...",
	"Un momento, la collego con il supervisor...",
	"La metto in contatto con un esperto...",
}

// TransferPhrase picks one of the fake-transfer announcements.
func TransferPhrase(rng *rand.Rand) string {
	return transferPhrases[rng.Intn(len(transferPhrases))]
}

var escalationPhrases = []string{
	"La comprendo perfettamente, ma...",
	"È una situazione molto particolare...",
	"Di solito funziona diversamente...",
	"Il sistema oggi è particolarmente lento...",
	"Vedo qui che... no aspetti, quello era un altro cliente...",
}

// EscalationPhrase picks one of the stock non-answers.
func EscalationPhrase(rng *rand.Rand) string {
	return escalationPhrases[rng.Intn(len(escalationPhrases))]
}

// scenarioMissSlots widens the scenario draw so that some turns leave the
// prompt unchanged: a draw landing past the scenario pool is a miss.
const scenarioMissSlots = 3

// WithRandomScenario sometimes appends one scenario, quoted, to a base
// prompt. Cosmetic variation only.
func WithRandomScenario(rng *rand.Rand, base string, scenarios []string) string {
	if len(scenarios) == 0 {
		return base
	}
	idx := rng.Intn(len(scenarios) + scenarioMissSlots)
	if idx >= len(scenarios) {
		return base
	}
	return fmt.Sprintf("%s Oggi potresti dire: \"%s\"", base, scenarios[idx])
}
