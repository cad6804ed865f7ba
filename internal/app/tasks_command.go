package app

import (
	"fmt"
	"strings"

	"github.com/m3rciful/todobot/core/telegram/helpers"
	"github.com/m3rciful/todobot/internal/tasks"

	tele "gopkg.in/telebot.v4"
)

const textNoTasks = "No tasks yet."

func (a *App) listTasks(c tele.Context) error {
	chat := c.Chat()
	if chat == nil {
		return nil
	}
	ctx := helpers.BuildContext(c)
	list, err := a.recent.Recent(ctx, chat.ID, a.cfg.Tasks.RecentLimit)
	if err != nil {
		return err
	}
	return c.Send(formatRecent(list))
}

func formatRecent(list []tasks.Task) string {
	if len(list) == 0 {
		return textNoTasks
	}
	var b strings.Builder
	for i, t := range list {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%d. %s: %s (%s, %s, %s)", i+1, t.Type, t.Header, t.Board, t.Severity, t.Assignee)
	}
	return b.String()
}
