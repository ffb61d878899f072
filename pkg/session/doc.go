/*
Package session binds an auth.Provider to a JSDO service and gates every
data request and catalog fetch on the provider holding client credentials.

	p, _ := auth.NewProvider(ctx, "https://host/App", "sso", auth.WithStore(store))
	_ = p.Login(ctx, auth.Credentials{Username: "u", Password: "pw"})

	s, _ := session.New("https://host/App", session.WithModel("sso"))
	if err := s.Connect(ctx, p); err != nil {
		return err
	}
	if err := s.AddCatalog(ctx, []string{"static/CustomerService.json"}); err != nil {
		return err
	}

For basic and form backends the session can own the provider:

	s, _ := session.New("https://host/App", session.WithModel("form"))
	err := s.Login(ctx, "u", "pw")
*/
package session
