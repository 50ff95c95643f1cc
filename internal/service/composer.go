package service

import (
	"fmt"
	"strings"

	"github.com/LeventeLantos/weekly-quiz-bot/internal/model"
)

const footer = "Banquea - Bot de preguntas médicas"

const (
	msgWelcome          = "Bienvenido/a al bot de preguntas médicas de Banquea. Este bot te enviará preguntas semanales para reforzar tus conocimientos médicos. ¿Deseas recibir preguntas semanales?"
	msgResubscribe      = "¿Deseas recibir preguntas médicas semanales para reforzar tus conocimientos?"
	msgChooseDay        = "Por favor selecciona el día de la semana en que deseas recibir las preguntas:"
	msgDayNotUnderstood = "No pude entender tu selección. Por favor, selecciona un día de la semana:"
	msgDeclined         = "Entendido. No recibirás preguntas semanales. Si cambias de opinión, escribe INICIAR."
	msgNotUnderstood    = "No entendí tu respuesta. Por favor responde SI o NO, o usa los botones enviados."
	msgDayError         = "Lo siento, hubo un error con tu selección. Por favor intenta de nuevo."
	msgNoQuestions      = "Lo sentimos, no pudimos encontrar preguntas disponibles. Por favor intenta más tarde."
	msgHourFormat       = "Por favor, responde con un número del 0 al 23."
	msgHourRange        = "Por favor, elige un número del 0 al 23."
	msgCancelled        = "Has cancelado tu suscripción. Ya no recibirás preguntas médicas. Para volver a suscribirte, escribe INICIAR."
	msgCommands         = "Recuerda que puedes utilizar estos comandos:\nDETENER - para dejar de recibir preguntas\nINICIAR - para configurar de nuevo tus preferencias"
	msgAnswerError      = "Lo sentimos, hubo un error al procesar tu respuesta. Por favor intenta de nuevo."
	msgNoPending        = "No encontramos una pregunta pendiente para responder. Te enviaremos la próxima pregunta en tu día programado."
	msgInternalError    = "Lo sentimos, ocurrió un error. Por favor intenta de nuevo en unos minutos."
)

func textDirective(body string) model.Directive {
	return model.Directive{Kind: model.DirectiveText, Body: body}
}

func confirmationPrompt(body string) model.Directive {
	return model.Directive{
		Kind:   model.DirectiveButtons,
		Header: "Configuración de suscripción",
		Body:   body,
		Footer: footer,
		Buttons: []model.Button{
			{ID: "yes_button", Title: "Sí"},
			{ID: "no_button", Title: "No"},
		},
	}
}

var dayDescriptions = [7]string{"Primer", "Segundo", "Tercer", "Cuarto", "Quinto", "Sexto", "Séptimo"}

func daySelection(body string) model.Directive {
	rows := make([]model.ListRow, 0, len(dayNames))
	for i, name := range dayNames {
		rows = append(rows, model.ListRow{
			ID:          fmt.Sprintf("day_%d", i+1),
			Title:       capitalize(name),
			Description: dayDescriptions[i] + " día de la semana",
		})
	}
	return model.Directive{
		Kind:       model.DirectiveList,
		Header:     "Selección de día",
		Body:       body,
		Footer:     footer,
		ButtonText: "Ver días",
		Sections:   []model.ListSection{{Title: "Días de la semana", Rows: rows}},
	}
}

func hourPrompt(day int) model.Directive {
	return textDirective(fmt.Sprintf(
		"Has seleccionado %s. ¿A qué hora prefieres recibir las preguntas? Responde con un número del 0 al 23 (formato 24 horas).",
		DayName(day)))
}

func subscribedConfirmation(prefs model.Preferences) model.Directive {
	return textDirective(fmt.Sprintf(
		"¡Perfecto! Recibirás preguntas médicas cada %s a las %d:00 horas. Para dejar de recibir preguntas, escribe DETENER en cualquier momento.",
		DayName(prefs.Day), prefs.Hour))
}

// questionList renders a question as a selectable list. Row titles are
// short labels; the option text goes in the body and row description.
func questionList(q model.Question) model.Directive {
	rows := make([]model.ListRow, 0, len(q.Options))
	for i, opt := range q.Options {
		rows = append(rows, model.ListRow{
			ID:          OptionID(q.ID, i+1),
			Title:       fmt.Sprintf("Opción %d", i+1),
			Description: opt,
		})
	}
	header := "Pregunta de la semana"
	if q.Area != "" {
		header = q.Area
	}
	return model.Directive{
		Kind:       model.DirectiveList,
		Header:     header,
		Body:       formatQuestion(q),
		Footer:     footer,
		ButtonText: "Ver opciones",
		Sections:   []model.ListSection{{Title: "Opciones", Rows: rows}},
	}
}

func sampleQuestion(q model.Question) model.Directive {
	return textDirective("¡Aquí tienes una pregunta de ejemplo!\n\n" + formatQuestion(q) +
		"\n\nResponde con el número de la opción correcta.")
}

func formatQuestion(q model.Question) string {
	var b strings.Builder
	if q.Area != "" {
		fmt.Fprintf(&b, "[%s] ", q.Area)
	}
	b.WriteString(q.Text)
	b.WriteString("\n")
	for i, opt := range q.Options {
		fmt.Fprintf(&b, "\n%d) %s", i+1, opt)
	}
	return b.String()
}

func nextDeliveryReminder(feedback string, user *model.User) model.Directive {
	if user == nil || user.PreferredDay == nil || DayName(*user.PreferredDay) == "" {
		return textDirective(feedback)
	}
	return textDirective(fmt.Sprintf("%s\n\nRecibirás la próxima pregunta el %s de la próxima semana.",
		feedback, DayName(*user.PreferredDay)))
}

func optionRangePrompt(q model.Question) model.Directive {
	return textDirective(fmt.Sprintf("Opción inválida. Responde con un número del 1 al %d.", len(q.Options)))
}

func capitalize(s string) string {
	r := []rune(s)
	if len(r) == 0 {
		return s
	}
	return strings.ToUpper(string(r[:1])) + string(r[1:])
}
