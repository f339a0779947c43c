package libol

var (
	Version = "v0.1.0"
	Date    = "dev"
	Commit  = ""
)
