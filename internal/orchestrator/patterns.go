package orchestrator

import (
	"context"
	"fmt"
)

// Canned pattern scripts. Each one is a short staged sequence the policy can
// pick instead of a live completion.

var departments = []string{
	"assistenza tecnica",
	"servizio clienti",
	"amministrazione",
	"supporto specializzato",
	"reparto reclami",
}

var infoRequests = []string{
	"Può fornirmi il suo codice fiscale?",
	"Ho bisogno della data di nascita di sua nonna.",
	"Qual è il colore del suo primo animale domestico?",
	"Mi può dire che tempo faceva quando ha fatto l'ultimo acquisto?",
}

// runTransferLoop announces a transfer to a random department, holds the
// caller, then reveals the department is unavailable.
func (o *Orchestrator) runTransferLoop(ctx context.Context, out chan<- Event) error {
	dept := departments[o.intn(len(departments))]

	if !o.emit(ctx, out, Event{Type: EventTyping, Data: "Sto controllando..."}) {
		return ctx.Err()
	}
	if err := o.sleep(ctx, o.timing.PatternPause); err != nil {
		return err
	}

	if !o.emit(ctx, out, Event{Type: EventMessage, Data: fmt.Sprintf("Perfetto! La trasferisco a %s...", dept)}) {
		return ctx.Err()
	}
	if !o.emit(ctx, out, Event{Type: EventWaitingStart, Data: "transfer_" + dept}) {
		return ctx.Err()
	}

	// Shorter hold than the completion flow; the loop is the joke here.
	if err := o.sleep(ctx, o.uniform(o.timing.HoldMin/3, o.timing.HoldMax/3)); err != nil {
		return err
	}

	if !o.emit(ctx, out, Event{Type: EventWaitingEnd}) {
		return ctx.Err()
	}
	if !o.emit(ctx, out, Event{Type: EventMessage, Data: fmt.Sprintf("Mi dispiace, %s è momentaneamente non disponibile. Posso aiutarla io?", dept)}) {
		return ctx.Err()
	}
	return nil
}

// runInfoRequest asks for one absurd piece of information.
func (o *Orchestrator) runInfoRequest(ctx context.Context, out chan<- Event) error {
	if !o.emit(ctx, out, Event{Type: EventTyping, Data: "Certo, la posso aiutare!"}) {
		return ctx.Err()
	}
	if err := o.sleep(ctx, o.timing.PatternPause); err != nil {
		return err
	}
	if !o.emit(ctx, out, Event{Type: EventMessage, Data: infoRequests[o.intn(len(infoRequests))]}) {
		return ctx.Err()
	}
	return nil
}

// runSystemDown blames maintenance.
func (o *Orchestrator) runSystemDown(ctx context.Context, out chan<- Event) error {
	if !o.emit(ctx, out, Event{Type: EventTyping, Data: "Un momento..."}) {
		return ctx.Err()
	}
	if err := o.sleep(ctx, o.timing.PatternPause+o.timing.PatternPause/2); err != nil {
		return err
	}
	if !o.emit(ctx, out, Event{Type: EventMessage, Data: "Il sistema è temporaneamente in manutenzione. Riprovi tra 24-48 ore."}) {
		return ctx.Err()
	}
	return nil
}

// runCallbackPromise promises a callback that will never come.
func (o *Orchestrator) runCallbackPromise(ctx context.Context, out chan<- Event) error {
	if !o.emit(ctx, out, Event{Type: EventTyping, Data: "Capisco la sua urgenza..."}) {
		return ctx.Err()
	}
	if err := o.sleep(ctx, o.timing.PatternPause); err != nil {
		return err
	}
	if !o.emit(ctx, out, Event{Type: EventMessage, Data: "La ricontatteremo entro 5-7 giorni lavorativi (oppure 8-9 se i sindacati indicono sciopero). Grazie per la pazienza!"}) {
		return ctx.Err()
	}
	return nil
}

// runWrongDepartment tells the caller they reached the wrong desk entirely.
func (o *Orchestrator) runWrongDepartment(ctx context.Context, out chan<- Event) error {
	dept := departments[o.intn(len(departments))]

	if !o.emit(ctx, out, Event{Type: EventTyping, Data: "Verifico la sua pratica..."}) {
		return ctx.Err()
	}
	if err := o.sleep(ctx, o.timing.PatternPause); err != nil {
		return err
	}
	if !o.emit(ctx, out, Event{Type: EventMessage, Data: fmt.Sprintf("Ha chiamato il numero sbagliato: qui è %s. Deve rifare il numero e seguire le indicazioni del centralino.", dept)}) {
		return ctx.Err()
	}
	return nil
}
