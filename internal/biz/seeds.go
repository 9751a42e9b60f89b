package biz

import "StackScout/internal/model"

// builtinSeeds is the knowledge the classifier starts with before
// configuration seeds and learned technologies are added.
var builtinSeeds = []model.TechnologyProfile{
	{Name: "python", Category: "language", Maturity: model.MaturityMature, Popularity: 0.95, DocURL: "https://docs.python.org/3/", Aliases: []string{"py", "cpython"}},
	{Name: "javascript", Category: "language", Maturity: model.MaturityMature, Popularity: 0.95, DocURL: "https://developer.mozilla.org/en-US/docs/Web/JavaScript", Aliases: []string{"js", "ecmascript"}},
	{Name: "typescript", Category: "language", Maturity: model.MaturityMature, Popularity: 0.9, DocURL: "https://www.typescriptlang.org/docs/", Aliases: []string{"ts"}},
	{Name: "go", Category: "language", Maturity: model.MaturityMature, Popularity: 0.85, DocURL: "https://go.dev/doc/", Aliases: []string{"golang"}},
	{Name: "rust", Category: "language", Maturity: model.MaturityStable, Popularity: 0.8, DocURL: "https://doc.rust-lang.org/book/", Aliases: []string{"rustlang"}},
	{Name: "java", Category: "language", Maturity: model.MaturityMature, Popularity: 0.9, DocURL: "https://docs.oracle.com/en/java/"},
	{Name: "kotlin", Category: "language", Maturity: model.MaturityStable, Popularity: 0.75, DocURL: "https://kotlinlang.org/docs/home.html"},
	{Name: "ruby", Category: "language", Maturity: model.MaturityMature, Popularity: 0.7, DocURL: "https://www.ruby-lang.org/en/documentation/"},
	{Name: "php", Category: "language", Maturity: model.MaturityMature, Popularity: 0.75, DocURL: "https://www.php.net/docs.php"},
	{Name: "c#", Category: "language", Maturity: model.MaturityMature, Popularity: 0.8, DocURL: "https://learn.microsoft.com/dotnet/csharp/", Aliases: []string{"csharp", "c sharp"}},
	{Name: "c++", Category: "language", Maturity: model.MaturityMature, Popularity: 0.8, DocURL: "https://en.cppreference.com/", Aliases: []string{"cpp", "cplusplus"}},
	{Name: "swift", Category: "language", Maturity: model.MaturityStable, Popularity: 0.7, DocURL: "https://www.swift.org/documentation/"},
	{Name: "react", Category: "frontend", Maturity: model.MaturityMature, Popularity: 0.95, DocURL: "https://react.dev/", RepoURL: "https://github.com/facebook/react", Aliases: []string{"reactjs", "react.js"}},
	{Name: "vue", Category: "frontend", Maturity: model.MaturityMature, Popularity: 0.85, DocURL: "https://vuejs.org/guide/", RepoURL: "https://github.com/vuejs/core", Aliases: []string{"vuejs", "vue.js"}},
	{Name: "angular", Category: "frontend", Maturity: model.MaturityMature, Popularity: 0.8, DocURL: "https://angular.dev/", Aliases: []string{"angularjs"}},
	{Name: "svelte", Category: "frontend", Maturity: model.MaturityStable, Popularity: 0.7, DocURL: "https://svelte.dev/docs", Aliases: []string{"sveltekit"}},
	{Name: "next.js", Category: "frontend", Maturity: model.MaturityStable, Popularity: 0.85, DocURL: "https://nextjs.org/docs", Aliases: []string{"nextjs", "next"}},
	{Name: "tailwindcss", Category: "frontend", Maturity: model.MaturityStable, Popularity: 0.8, DocURL: "https://tailwindcss.com/docs", Aliases: []string{"tailwind"}},
	{Name: "node.js", Category: "runtime", Maturity: model.MaturityMature, Popularity: 0.95, DocURL: "https://nodejs.org/docs/latest/api/", Aliases: []string{"node", "nodejs"}},
	{Name: "deno", Category: "runtime", Maturity: model.MaturityStable, Popularity: 0.5, DocURL: "https://docs.deno.com/"},
	{Name: "django", Category: "backend", Maturity: model.MaturityMature, Popularity: 0.85, DocURL: "https://docs.djangoproject.com/"},
	{Name: "flask", Category: "backend", Maturity: model.MaturityMature, Popularity: 0.8, DocURL: "https://flask.palletsprojects.com/"},
	{Name: "fastapi", Category: "backend", Maturity: model.MaturityStable, Popularity: 0.8, DocURL: "https://fastapi.tiangolo.com/"},
	{Name: "express", Category: "backend", Maturity: model.MaturityMature, Popularity: 0.85, DocURL: "https://expressjs.com/", Aliases: []string{"expressjs", "express.js"}},
	{Name: "spring boot", Category: "backend", Maturity: model.MaturityMature, Popularity: 0.85, DocURL: "https://docs.spring.io/spring-boot/", Aliases: []string{"spring", "springboot"}},
	{Name: "rails", Category: "backend", Maturity: model.MaturityMature, Popularity: 0.7, DocURL: "https://guides.rubyonrails.org/", Aliases: []string{"ruby on rails", "ror"}},
	{Name: "postgresql", Category: "database", Maturity: model.MaturityMature, Popularity: 0.9, DocURL: "https://www.postgresql.org/docs/", Aliases: []string{"postgres", "psql"}},
	{Name: "mysql", Category: "database", Maturity: model.MaturityMature, Popularity: 0.9, DocURL: "https://dev.mysql.com/doc/", Aliases: []string{"mariadb"}},
	{Name: "mongodb", Category: "database", Maturity: model.MaturityMature, Popularity: 0.8, DocURL: "https://www.mongodb.com/docs/", Aliases: []string{"mongo"}},
	{Name: "redis", Category: "database", Maturity: model.MaturityMature, Popularity: 0.85, DocURL: "https://redis.io/docs/"},
	{Name: "sqlite", Category: "database", Maturity: model.MaturityMature, Popularity: 0.8, DocURL: "https://www.sqlite.org/docs.html", Aliases: []string{"sqlite3"}},
	{Name: "docker", Category: "devops", Maturity: model.MaturityMature, Popularity: 0.95, DocURL: "https://docs.docker.com/"},
	{Name: "kubernetes", Category: "devops", Maturity: model.MaturityMature, Popularity: 0.9, DocURL: "https://kubernetes.io/docs/", Aliases: []string{"k8s"}},
	{Name: "terraform", Category: "devops", Maturity: model.MaturityMature, Popularity: 0.8, DocURL: "https://developer.hashicorp.com/terraform/docs"},
	{Name: "pytest", Category: "testing", Maturity: model.MaturityMature, Popularity: 0.8, DocURL: "https://docs.pytest.org/"},
	{Name: "jest", Category: "testing", Maturity: model.MaturityMature, Popularity: 0.8, DocURL: "https://jestjs.io/docs/getting-started"},
	{Name: "pytorch", Category: "ml", Maturity: model.MaturityMature, Popularity: 0.85, DocURL: "https://pytorch.org/docs/", Aliases: []string{"torch"}},
	{Name: "tensorflow", Category: "ml", Maturity: model.MaturityMature, Popularity: 0.8, DocURL: "https://www.tensorflow.org/api_docs", Aliases: []string{"tf"}},
}
