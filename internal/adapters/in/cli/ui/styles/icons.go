package styles

// Nerd Font icons. They require a Nerd Font compatible terminal font.
const (
	IconSuccess = "\uf00c" // nf-fa-check
	IconError   = "\uf00d" // nf-fa-times
	IconWarning = "\uf071" // nf-fa-exclamation_triangle
	IconInfo    = "\uf05a" // nf-fa-info_circle
	IconPending = "\uf017" // nf-fa-clock_o

	IconSite  = "\uf0ac" // nf-fa-globe
	IconCron  = "\uf073" // nf-fa-calendar
	IconBuild = "\uf0ad" // nf-fa-wrench

	IconBullet = "\u25b8"
)
