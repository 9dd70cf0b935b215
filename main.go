package main

import (
	_ "git.handmade.network/hmn/syllabus/src/admintools"
	_ "git.handmade.network/hmn/syllabus/src/migration"
	"git.handmade.network/hmn/syllabus/src/website"
)

func main() {
	website.WebsiteCommand.Execute()
}
