// Package notify handles the downstream side of a committed lead: the AI
// auto-response to the customer, the sales-rep alert, and the lead status
// bookkeeping that follows.
package notify

import (
	"context"
	"fmt"

	"autolead_backend/platform/logger"
)

// Completer is the single-turn completion surface of the model client.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// Responder generates the Norwegian auto-response email body. AI failure
// falls back to a static courtesy message, never an error.
type Responder struct {
	ai  Completer
	log *logger.Logger
}

// NewResponder creates a responder.
func NewResponder(ai Completer, log *logger.Logger) *Responder {
	return &Responder{ai: ai, log: log}
}

// Generate returns the response text and whether it is the fallback.
func (r *Responder) Generate(ctx context.Context, customerName, interest, message, dealershipName string) (string, bool) {
	text, err := r.ai.Complete(ctx,
		systemPrompt(dealershipName),
		responsePrompt(customerName, interest, message))
	if err != nil {
		r.log.AIDegraded("auto_response", err)
		return fallbackResponse(customerName, dealershipName), true
	}
	return text, false
}

func systemPrompt(dealershipName string) string {
	return fmt.Sprintf(`Du er en hjelpsom kundeservicerepresentant for %s,
en bilforhandler i Norge. Din oppgave er å svare raskt og profesjonelt på
kundehenvendelser om biler.

Regler for svar:
- Svar alltid på norsk (bokmål)
- Vær høflig, vennlig og profesjonell
- Bekreft kundens interesse
- Fortell at en selger vil ta kontakt snart
- IKKE forhandle priser eller love noe som ikke er bekreftet
- IKKE oppgi kontaktinformasjon (den kommer i signaturen)
- Hold svar kort og konsist (2-4 setninger)
- Bruk et varmt og imøtekommende språk`, dealershipName)
}

func responsePrompt(customerName, interest, message string) string {
	if interest == "" {
		interest = "Ikke spesifisert"
	}
	return fmt.Sprintf(`Kunde: %s
Interessert i: %s
Melding: %s

Generer et venlig svar som:
1. Takker kunden for henvendelsen
2. Bekrefter interesse i kjøretøyet (hvis spesifisert)
3. Forteller at en selger vil kontakte dem snart (innen 24 timer)
4. Er varmt og inviterende

Maks 3-4 setninger. Ikke inkluder signatur eller kontaktinfo.`, customerName, interest, message)
}

func fallbackResponse(customerName, dealershipName string) string {
	if customerName == "" {
		customerName = "og takk for din interesse"
	}
	return fmt.Sprintf(`Hei %s!

Takk for din henvendelse til %s. Vi setter stor pris på din interesse.

En av våre selgere vil ta kontakt med deg så snart som mulig, normalt innen 24 timer, for å hjelpe deg videre.

Med vennlig hilsen,
%s`, customerName, dealershipName, dealershipName)
}
