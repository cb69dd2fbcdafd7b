package service

import (
	"context"
	"errors"
	"testing"

	"certhub/internal/dto"
	"certhub/internal/model"
	pkgerrors "certhub/pkg/errors"
)

func TestTemplate_CreateRejectsUnknownPlaceholder(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Template.Create(context.Background(), &dto.CreateTemplateRequest{
		Name:    "Broken",
		Content: dto.TemplateContentPayload{Body: "Hello {candidateName}, your {favouriteColour} award"},
	}, adminID)
	if pkgerrors.KindOf(err) != pkgerrors.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestTemplate_DefaultsAndOneDefaultPerScope(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := f.createTemplate(t, strp(courseGo), true)
	if !first.IsActive || !first.IsDefault || first.Version != 1 {
		t.Fatalf("unexpected template %+v", first)
	}
	if first.Design.Orientation == "" || first.Design.Layout == "" {
		t.Errorf("design defaults not applied: %+v", first.Design)
	}

	second := f.createTemplate(t, strp(courseGo), true)

	got, err := f.svc.Template.GetByID(ctx, first.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.IsDefault {
		t.Error("previous default should have been cleared")
	}

	// other scope untouched
	global := f.createTemplate(t, nil, true)
	got, _ = f.svc.Template.GetByID(ctx, second.ID)
	if !got.IsDefault {
		t.Error("course default must survive a new global default")
	}
	if !global.IsDefault {
		t.Error("global template should be default")
	}

	_, err = f.svc.Template.Create(ctx, &dto.CreateTemplateRequest{
		Name:      "Inactive default",
		IsActive:  new(bool),
		IsDefault: true,
		Content:   dto.TemplateContentPayload{Body: "x"},
	}, adminID)
	if pkgerrors.KindOf(err) != pkgerrors.KindValidation {
		t.Errorf("inactive default should be rejected, got %v", err)
	}
}

func TestTemplate_UpdateVersioning(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tmpl := f.createTemplate(t, nil, false)

	name := "Renamed"
	updated, err := f.svc.Template.Update(ctx, tmpl.ID, &dto.UpdateTemplateRequest{Name: &name, Version: tmpl.Version}, adminID)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Version != tmpl.Version+1 || updated.Name != name {
		t.Errorf("unexpected update result %+v", updated)
	}

	_, err = f.svc.Template.Update(ctx, tmpl.ID, &dto.UpdateTemplateRequest{Name: &name, Version: tmpl.Version}, adminID)
	assertKind(t, err, ErrTemplateVersionStale)

	_, err = f.svc.Template.Update(ctx, tmpl.ID, &dto.UpdateTemplateRequest{
		Content: &dto.TemplateContentPayload{Body: "{nope}"},
		Version: updated.Version,
	}, adminID)
	if pkgerrors.KindOf(err) != pkgerrors.KindValidation {
		t.Errorf("expected validation error, got %v", err)
	}

	_, err = f.svc.Template.Update(ctx, "7f1d0c2b-0000-4000-8000-000000000000", &dto.UpdateTemplateRequest{Version: 1}, adminID)
	assertKind(t, err, ErrTemplateNotFound)
}

func TestTemplate_ListAndDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.createTemplate(t, strp(courseGo), false)
	f.createTemplate(t, strp(courseK8s), false)

	list, total, err := f.svc.Template.List(ctx, &dto.TemplateListRequest{CourseID: courseGo})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 1 || len(list) != 1 || list[0].ID != a.ID {
		t.Errorf("course filter: total=%d list=%v", total, list)
	}

	if err := f.svc.Template.Delete(ctx, a.ID, adminID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := f.svc.Template.GetByID(ctx, a.ID); !errors.Is(err, ErrTemplateNotFound) {
		t.Errorf("deleted template should be gone, got %v", err)
	}
	if err := f.svc.Template.Delete(ctx, a.ID, adminID); !errors.Is(err, ErrTemplateNotFound) {
		t.Errorf("second delete: expected not found, got %v", err)
	}
}

func TestResolvePlaceholders_LeavesUnknownTokens(t *testing.T) {
	in := model.TemplateContent{Body: "Hi {candidateName}, {unknown} and {grade}{grade}"}
	out := resolvePlaceholders(in, map[string]string{PhCandidateName: "Ann", PhGrade: "B"})
	if out.Body != "Hi Ann, {unknown} and BB" {
		t.Errorf("got %q", out.Body)
	}
}
