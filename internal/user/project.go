package user

// Project returns the client-safe subset of u.
func Project(u User) Profile {
	p := Profile{ID: u.ID, Image: u.Image}
	if u.Name != nil {
		p.Name = *u.Name
	}
	return p
}

func ProjectAll(users []User) []Profile {
	out := make([]Profile, 0, len(users))
	for _, u := range users {
		out = append(out, Project(u))
	}
	return out
}
