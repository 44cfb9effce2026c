package syncer

import (
	"context"
	"fmt"
	"strings"
	"text/template"

	"github.com/cybermouflons/CTFNote/models"
)

// Notifier компонует шаблонные сообщения и публикует их в talk-канал
// либо тред задачи.
type Notifier struct {
	syncer    *Syncer
	templates *template.Template
}

const notifierTemplates = `
{{define "taskCreated"}}New task created: **{{.Task}}**{{end}}
{{define "taskSolved"}}**{{.Task}}** is solved by {{.Solvers}}! :fire:{{end}}
{{define "startedWorking"}}{{.User}} started working on **{{.Task}}**!{{end}}
{{define "stoppedWorking"}}{{.User}} stopped working on this task!{{end}}
{{define "cancelledWorking"}}{{.User}} cancelled working on this task!{{end}}
{{define "descriptionChanged"}}Description changed:
{{.Description}}{{end}}
`

func newNotifier(s *Syncer) *Notifier {
	return &Notifier{
		syncer:    s,
		templates: template.Must(template.New("notifier").Parse(notifierTemplates)),
	}
}

func (n *Notifier) render(name string, data interface{}) (string, error) {
	var b strings.Builder
	if err := n.templates.ExecuteTemplate(&b, name, data); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", name, err)
	}
	return b.String(), nil
}

// DisplayName возвращает упоминание участника: Discord-mention для
// привязанного профиля, иначе имя пользователя.
func (n *Notifier) DisplayName(ctx context.Context, profile *models.Profile) string {
	if profile == nil {
		return "someone"
	}
	if !profile.Linked() {
		return profile.Username
	}
	name, err := n.syncer.client.MemberDisplayName(ctx, *profile.DiscordID)
	if err != nil || strings.EqualFold(name, profile.Username) {
		return fmt.Sprintf("<@%s>", *profile.DiscordID)
	}
	return fmt.Sprintf("<@%s> (%s)", *profile.DiscordID, profile.Username)
}

func (n *Notifier) sendToTalk(ctx context.Context, space *Space, text string) error {
	return n.syncer.client.SendMessage(ctx, space.Talk.ID, text)
}

func (n *Notifier) sendToThread(ctx context.Context, space *Space, task *models.Task, text string) error {
	thread, err := n.syncer.ThreadForTask(ctx, space, task)
	if err != nil {
		return err
	}
	return n.syncer.client.SendMessage(ctx, thread.ID, text)
}

// AnnounceTaskCreated объявляет новую задачу в talk-канале.
func (n *Notifier) AnnounceTaskCreated(ctx context.Context, space *Space, task *models.Task) error {
	if !n.syncer.Enabled() {
		return nil
	}
	text, err := n.render("taskCreated", map[string]string{"Task": task.Title})
	if err != nil {
		return err
	}
	return n.sendToTalk(ctx, space, text)
}

// AnnounceSolved объявляет решение задачи с перечислением решивших.
func (n *Notifier) AnnounceSolved(ctx context.Context, space *Space, task *models.Task, solvers []*models.Profile) error {
	if !n.syncer.Enabled() {
		return nil
	}
	names := make([]string, 0, len(solvers))
	for _, solver := range solvers {
		names = append(names, n.DisplayName(ctx, solver))
	}
	text, err := n.render("taskSolved", map[string]string{
		"Task":    task.Title,
		"Solvers": strings.Join(names, ", "),
	})
	if err != nil {
		return err
	}
	return n.sendToTalk(ctx, space, text)
}

// AnnounceStartedWorking объявляет в talk-канале, что участник взял задачу.
func (n *Notifier) AnnounceStartedWorking(ctx context.Context, space *Space, task *models.Task, profile *models.Profile) error {
	if !n.syncer.Enabled() {
		return nil
	}
	text, err := n.render("startedWorking", map[string]string{
		"Task": task.Title,
		"User": n.DisplayName(ctx, profile),
	})
	if err != nil {
		return err
	}
	return n.sendToTalk(ctx, space, text)
}

// AnnounceStoppedWorking пишет в тред задачи, что участник остановился
// (или отменил работу).
func (n *Notifier) AnnounceStoppedWorking(ctx context.Context, space *Space, task *models.Task, profile *models.Profile, cancelled bool) error {
	if !n.syncer.Enabled() {
		return nil
	}
	templateName := "stoppedWorking"
	if cancelled {
		templateName = "cancelledWorking"
	}
	text, err := n.render(templateName, map[string]string{
		"User": n.DisplayName(ctx, profile),
	})
	if err != nil {
		return err
	}
	return n.sendToThread(ctx, space, task, text)
}

// AnnounceDescriptionChanged пишет новое описание в тред задачи.
func (n *Notifier) AnnounceDescriptionChanged(ctx context.Context, space *Space, task *models.Task, description string) error {
	if !n.syncer.Enabled() {
		return nil
	}
	text, err := n.render("descriptionChanged", map[string]string{"Description": description})
	if err != nil {
		return err
	}
	return n.sendToThread(ctx, space, task, text)
}
