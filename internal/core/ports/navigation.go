package ports

// Navigator exposes the current navigation context and accepts redirects.
type Navigator interface {
	CurrentPath() string
	Redirect(path string)
}

// Notifier surfaces a transient, user-visible message.
type Notifier interface {
	Notify(message string)
}
