package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dalemusser/filescout/internal/app/directory"
	"github.com/dalemusser/filescout/internal/app/system/authz"
	"github.com/dalemusser/filescout/internal/domain/models"
)

func (t *turn) startBrowse(ctx context.Context) error {
	if err := t.move(ctx, fresh(models.PhaseBrowsingFolder)); err != nil {
		return err
	}
	return t.reply(ctx, msgSearchPrompt, browseKeyboard(t.subj.Role))
}

// browse looks up a folder by name. Members only see folders carrying
// their group's tag; the group is the one just reloaded by verify, so a
// reassignment applies on the next lookup.
func (t *turn) browse(ctx context.Context, name string) error {
	if name == "" {
		return t.reply(ctx, msgSearchPrompt, browseKeyboard(t.subj.Role))
	}
	scope, err := authz.BrowseScope(t.subj)
	if err != nil {
		return t.deny(ctx, authz.ActionBrowse)
	}

	listing, err := t.m.dir.Resolve(ctx, name, scope)
	kb := browseKeyboard(t.subj.Role)
	switch {
	case errors.Is(err, directory.ErrFolderNotFound):
		return t.reply(ctx, msgFolderNotFound, kb)
	case errors.Is(err, directory.ErrUpstream):
		return t.reply(ctx, msgTryLater, kb)
	case err != nil:
		return fmt.Errorf("resolve folder: %w", err)
	case listing.Empty():
		return t.reply(ctx, msgNoFiles, kb)
	}
	return t.reply(ctx, t.m.renderListing(listing), kb)
}

func (m *Machine) renderListing(l directory.Listing) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📂 Файлы в папке <b>%s</b>:\n\n", m.sanitize.Sanitize(l.Name))
	for _, e := range l.Entries {
		icon := "📄"
		if e.IsFolder() {
			icon = "📁"
		}
		fmt.Fprintf(&b, "%s <b>%s</b>: <a href=\"%s\">Скачать</a>\n",
			icon, m.sanitize.Sanitize(e.Name), e.DownloadURL())
	}
	return b.String()
}
