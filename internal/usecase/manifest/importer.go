package manifest

import (
	"context"
	"errors"
	"strings"

	"github.com/bnema/zerowrap"
	"github.com/samber/lo"

	"github.com/ltuffery/Octopus/internal/boundaries/in"
	"github.com/ltuffery/Octopus/internal/domain"
)

// Result reports what an import created and skipped.
type Result struct {
	Created []string
	Skipped []string
}

// Importer creates the declared entities that do not exist yet. Existing
// entities, matched by name, are never modified.
type Importer struct {
	sites    in.SiteService
	webhooks in.WebhookService
	cron     in.CronService
}

// NewImporter creates an importer.
func NewImporter(sites in.SiteService, webhooks in.WebhookService, cron in.CronService) *Importer {
	return &Importer{sites: sites, webhooks: webhooks, cron: cron}
}

// Import applies m. Declarations are processed in dependency order: webhooks,
// sites, then cron jobs. Every failing declaration is reported in the joined error.
func (i *Importer) Import(ctx context.Context, m *Manifest) (Result, error) {
	ctx = zerowrap.CtxWithFields(ctx, map[string]any{
		zerowrap.FieldLayer:   "usecase",
		zerowrap.FieldUseCase: "ImportManifest",
	})
	log := zerowrap.FromCtx(ctx)

	var (
		res  Result
		errs []error
	)

	hooks, err := i.webhooks.List(ctx)
	if err != nil {
		return res, err
	}
	hookIDs := lo.SliceToMap(hooks, func(h *domain.Webhook) (string, string) { return strings.ToLower(h.Name), h.ID })

	for _, decl := range m.Webhooks {
		key := strings.ToLower(decl.Name)
		if _, ok := hookIDs[key]; ok {
			res.Skipped = append(res.Skipped, "webhook/"+decl.Name)
			continue
		}
		hook, err := i.webhooks.Create(ctx, domain.WebhookSpec{
			Name:     decl.Name,
			URL:      decl.URL,
			Method:   decl.Method,
			Headers:  decl.Headers,
			Body:     decl.Body,
			IsActive: decl.Active,
		})
		if err != nil {
			errs = append(errs, err)
			continue
		}
		hookIDs[key] = hook.ID
		res.Created = append(res.Created, "webhook/"+decl.Name)
	}

	sites, err := i.sites.List(ctx)
	if err != nil {
		return res, err
	}
	siteIDs := lo.SliceToMap(sites, func(s *domain.Site) (string, string) { return strings.ToLower(s.Name), s.ID })

	for _, decl := range m.Sites {
		key := strings.ToLower(decl.Name)
		if _, ok := siteIDs[key]; ok {
			res.Skipped = append(res.Skipped, "site/"+decl.Name)
			continue
		}
		site, err := i.sites.Create(ctx, decl.spec())
		if err != nil {
			errs = append(errs, err)
			continue
		}
		siteIDs[key] = site.ID
		res.Created = append(res.Created, "site/"+decl.Name)
		if decl.Build {
			if _, err := i.sites.Build(ctx, site.ID); err != nil {
				log.Warn().Err(err).Str("site", decl.Name).Msg("manifest build failed")
			}
		}
	}

	jobs, err := i.cron.List(ctx)
	if err != nil {
		return res, err
	}
	jobNames := lo.SliceToMap(jobs, func(j *domain.CronJob) (string, bool) { return strings.ToLower(j.Name), true })

	for _, decl := range m.Cron {
		if jobNames[strings.ToLower(decl.Name)] {
			res.Skipped = append(res.Skipped, "cron/"+decl.Name)
			continue
		}
		spec := domain.CronJobSpec{
			Name:     decl.Name,
			Schedule: decl.Schedule,
			Command:  decl.Command,
			Enabled:  decl.Enabled,
		}
		switch {
		case decl.Webhook != "":
			spec.Target = domain.CronTarget{Kind: domain.TargetWebhook, WebhookID: hookIDs[strings.ToLower(decl.Webhook)]}
		case decl.Site != "":
			spec.Target = domain.CronTarget{
				Kind:       domain.TargetSite,
				SiteID:     siteIDs[strings.ToLower(decl.Site)],
				SiteAction: domain.SiteAction(decl.Action),
			}
		}
		if _, err := i.cron.Schedule(ctx, spec); err != nil {
			errs = append(errs, err)
			continue
		}
		jobNames[strings.ToLower(decl.Name)] = true
		res.Created = append(res.Created, "cron/"+decl.Name)
	}

	log.Info().
		Int("created", len(res.Created)).
		Int("skipped", len(res.Skipped)).
		Int("failed", len(errs)).
		Msg("manifest imported")
	return res, errors.Join(errs...)
}

func (d SiteDecl) spec() domain.SiteSpec {
	return domain.SiteSpec{
		Name:         d.Name,
		Source:       domain.SiteSource(strings.ToLower(d.Source)),
		SourceURL:    d.URL,
		LocalPath:    d.Path,
		Framework:    d.Framework,
		Branch:       d.Branch,
		BuildCommand: d.BuildCommand,
		StartCommand: d.StartCommand,
		EnvVars:      d.Env,
		Domain:       d.Domain,
		Port:         d.Port,
		Runtime:      domain.SiteRuntime(d.Runtime),
		Image:        d.Image,
	}
}
