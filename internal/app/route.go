package app

// Route is one of the two views of the application.
type Route string

const (
	RouteLogin Route = "/login"
	RouteChat  Route = "/chat"
)

// Resolve maps a requested path to the route that is actually shown. The
// login view is only reachable while logged out and the chat view only while
// logged in; "/" and unknown paths land on whichever of the two applies.
func Resolve(path string, loggedIn bool) Route {
	switch Route(path) {
	case RouteLogin:
		if loggedIn {
			return RouteChat
		}
		return RouteLogin
	case RouteChat:
		if !loggedIn {
			return RouteLogin
		}
		return RouteChat
	default:
		if loggedIn {
			return RouteChat
		}
		return RouteLogin
	}
}
