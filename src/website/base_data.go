package website

import (
	"git.handmade.network/hmn/syllabus/src/hmnurl"
	"git.handmade.network/hmn/syllabus/src/templates"
)

func getBaseData(c *RequestContext, title string) templates.BaseData {
	var templateUser *templates.User
	var templateSession *templates.Session
	if c.CurrentUser != nil {
		templateUser = templates.UserToTemplate(c.CurrentUser)
		templateSession = templates.SessionToTemplate(c.CurrentSession)
	}

	return templates.BaseData{
		Title:   title,
		Notices: getNoticesFromCookie(c),

		CurrentUrl:   c.FullUrl(),
		LoginPageUrl: hmnurl.BuildLoginWithRedirect(c.FullUrl()),

		User:    templateUser,
		Session: templateSession,

		Header: templates.Header{
			HomepageUrl: hmnurl.BuildHomepage(),
			LoginUrl:    hmnurl.BuildLogin(),
			LogoutUrl:   hmnurl.BuildLogout(),
		},
	}
}
