package patterns

import (
	"regexp"

	"github.com/vinayprograms/recoverkit/classify"
)

func def(name string, cat classify.Category, sev Severity, expr, fix string) Pattern {
	return Pattern{Name: name, Category: cat, Match: regexp.MustCompile(expr), Severity: sev, Fix: fix}
}

var builtinPatterns = []Pattern{
	// npm_install
	def("npm-peer-dependency-conflict", classify.NPMInstall, SeverityError,
		`(?i)(ERESOLVE|could not resolve dependency|conflicting peer dependency)`,
		"Inspect the conflicting peer range in the error, align the versions in package.json, or retry with --legacy-peer-deps as a last resort."),
	def("npm-integrity-mismatch", classify.NPMInstall, SeverityError,
		`(?i)(EINTEGRITY|integrity checksum failed|sha512-.* integrity)`,
		"Run npm cache clean --force, delete package-lock.json and node_modules, then install again."),
	def("npm-version-not-found", classify.NPMInstall, SeverityWarning,
		`(?i)(ETARGET|no matching version found|notarget)`,
		"Check the requested version exists with npm view <package> versions and pin a published one."),
	def("npm-permission-denied", classify.NPMInstall, SeverityCritical,
		`(?i)(EACCES|permission denied).*(npm|node_modules)|(npm|node_modules).*(EACCES|permission denied)`,
		"Fix ownership of the npm cache and node_modules instead of using sudo; reinstall as the current user."),
	def("npm-missing-package", classify.NPMInstall, SeverityError,
		`Cannot find module '[^./][^']*'`,
		"Add the missing package with npm install <package> and confirm it is listed in package.json dependencies."),
	def("npm-lockfile-out-of-sync", classify.NPMInstall, SeverityWarning,
		`(?i)(npm ci can only install|lock ?file.*(out of (date|sync)|not in sync)|ERR_PNPM_OUTDATED_LOCKFILE)`,
		"Regenerate the lockfile with a plain install, commit it, then rerun the clean install."),

	// typescript_error
	def("ts-type-not-assignable", classify.TypeScriptError, SeverityError,
		`(TS2322|TS2345|is not assignable to (type|parameter))`,
		"Compare the expected and actual types in the message; fix the value or widen the declared type rather than casting."),
	def("ts-property-missing", classify.TypeScriptError, SeverityError,
		`(TS2339|TS2741|Property '[^']+' (does not exist|is missing))`,
		"Add the property to the interface or narrow the union before access; check for a typo in the property name."),
	def("ts-cannot-find-name", classify.TypeScriptError, SeverityError,
		`(TS2304|TS2307|Cannot find (name|module) ')`,
		"Import the missing symbol or install its type declarations (@types/<package>), and check tsconfig paths."),
	def("ts-possibly-undefined", classify.TypeScriptError, SeverityWarning,
		`(TS2532|TS18048|TS2531|is possibly '(undefined|null)'|Object is possibly)`,
		"Guard the value with a null check or optional chaining before use."),
	def("ts-implicit-any", classify.TypeScriptError, SeverityWarning,
		`(TS7006|TS7005|implicitly has an? '?any'? type)`,
		"Annotate the parameter or variable with an explicit type."),

	// test_failure
	def("test-snapshot-mismatch", classify.TestFailure, SeverityWarning,
		`(?i)(snapshot.*(mismatch|failed|obsolete)|toMatchSnapshot|toMatchInlineSnapshot)`,
		"Review the snapshot diff; update the snapshot only if the new output is intended."),
	def("test-timeout", classify.TestFailure, SeverityError,
		`(?i)(exceeded timeout|timed out|timeout of \d+ ?ms|test timed out)`,
		"Look for an unresolved promise or missing await in the test, and mock slow external calls."),
	def("test-assertion", classify.TestFailure, SeverityError,
		`(?i)(AssertionError|expect\(.*\)\.(to|not)|expected .* (to|but) |--- FAIL:|assertion failed)`,
		"Run only the failing test, read the expected vs received values, and decide whether the code or the expectation is wrong."),
	def("test-setup-failure", classify.TestFailure, SeverityCritical,
		`(?i)(test suite failed to run|beforeAll|beforeEach|cannot (find|use) import statement outside a module)`,
		"Fix the test environment first: check the test runner config, transforms and setup files before touching assertions."),

	// build_failure
	def("build-out-of-memory", classify.BuildFailure, SeverityCritical,
		`(?i)(heap out of memory|JavaScript heap|ENOMEM|killed.*signal 9)`,
		"Raise the memory limit (NODE_OPTIONS=--max-old-space-size=4096) or split the build."),
	def("build-module-resolution", classify.BuildFailure, SeverityError,
		`(?i)(module not found|can't resolve|could not resolve|failed to resolve import)`,
		"Check the import path and file extension, and confirm the bundler alias or tsconfig paths match."),
	def("build-syntax", classify.BuildFailure, SeverityError,
		`(?i)(syntax ?error|unexpected token|parse error)`,
		"Open the reported file near the reported position and fix the syntax; check for an unsupported language feature in the build target."),
	def("build-make", classify.BuildFailure, SeverityWarning,
		`\bmake: \*\*\*`,
		"Scroll up to the first error printed before the make summary; that is the failing step."),

	// file_not_found
	def("file-relative-import", classify.FileNotFound, SeverityError,
		`Cannot find module '\.{1,2}/`,
		"Verify the relative import path against the directory layout and fix its casing and extension."),
	def("file-missing-path", classify.FileNotFound, SeverityWarning,
		`(?i)(ENOENT|no such file or directory)`,
		"List the parent directory to confirm the path, and create the file or correct the path instead of retrying."),
	def("file-wrong-cwd", classify.FileNotFound, SeverityInfo,
		`(?i)(cannot find the (file|path)|file not found|does not exist:)`,
		"Check the working directory the command ran in and use a path relative to the project root."),

	// git_conflict
	def("git-merge-conflict", classify.GitConflict, SeverityCritical,
		`(?i)(CONFLICT \(|automatic merge failed|<<<<<<< )`,
		"List conflicted files with git status, resolve each conflict marker by hand, then stage and commit."),
	def("git-unmerged-paths", classify.GitConflict, SeverityError,
		`(?i)(unmerged paths|fix conflicts and then commit|you have not concluded your merge)`,
		"Finish or abort the in-progress merge (git merge --abort) before running further git commands."),

	// database_error
	def("db-connection-refused", classify.DatabaseError, SeverityCritical,
		`(?i)(ECONNREFUSED.*:(5432|3306|27017|6379)|connection to server .* failed|can't reach database server)`,
		"Start the database service and verify the host, port and credentials in the connection string."),
	def("db-missing-relation", classify.DatabaseError, SeverityError,
		`(?i)(relation "[^"]+" does not exist|no such table|table .* doesn't exist)`,
		"Run the pending migrations against this database before querying the table."),
	def("db-unique-violation", classify.DatabaseError, SeverityWarning,
		`(?i)(duplicate key value|unique constraint|SQLITE_CONSTRAINT)`,
		"Look up the existing row first or use an upsert; reset seed data if the conflict comes from fixtures."),
	def("db-migration-failed", classify.DatabaseError, SeverityError,
		`(?i)(migration failed|P3009|P3018|migrate.*error)`,
		"Inspect the failed migration, fix it, and mark it rolled back before reapplying."),
	def("db-locked", classify.DatabaseError, SeverityWarning,
		`(?i)(SQLITE_BUSY|database is locked|deadlock detected)`,
		"Close other connections holding the database and retry the operation once."),

	// api_error
	def("api-unauthorized", classify.APIError, SeverityError,
		`(?i)(\b401\b|\b403\b|unauthorized|forbidden|invalid api key)`,
		"Check the credential environment variables are set for this process and that the token has not expired."),
	def("api-rate-limited", classify.APIError, SeverityWarning,
		`(?i)(\b429\b|rate limit|too many requests)`,
		"Back off before calling again and reduce request volume; do not loop on the same call."),
	def("api-server-error", classify.APIError, SeverityError,
		`(?i)(\b50[0234]\b|bad gateway|service unavailable|internal server error)`,
		"The remote side failed; confirm the endpoint status and retry later rather than changing local code."),
	def("api-network", classify.APIError, SeverityError,
		`(?i)(ECONNREFUSED|ETIMEDOUT|ECONNRESET|ENOTFOUND|fetch failed)`,
		"Verify the service URL and that the server is running and reachable from this machine."),
	def("api-not-found", classify.APIError, SeverityWarning,
		`(?i)(\b404\b|not found)`,
		"Check the endpoint path and HTTP method against the API reference."),

	// unknown, scanned for every category when nothing specific matches
	def("generic-permission-denied", classify.Unknown, SeverityError,
		`(?i)(EACCES|EPERM|permission denied|operation not permitted)`,
		"Check file ownership and permissions on the reported path; avoid escalating privileges blindly."),
	def("generic-command-not-found", classify.Unknown, SeverityError,
		`(?i)(command not found|is not recognized as an internal or external command|executable file not found)`,
		"Install the missing tool or fix PATH, and confirm the command name is spelled correctly."),
	def("generic-out-of-space", classify.Unknown, SeverityCritical,
		`(?i)(ENOSPC|no space left on device)`,
		"Free disk space (caches, build output, docker images) before retrying."),
	def("generic-port-in-use", classify.Unknown, SeverityWarning,
		`(?i)(EADDRINUSE|address already in use)`,
		"Stop the process already bound to the port or pick a different port."),
	def("generic-syntax", classify.Unknown, SeverityWarning,
		`(?i)(syntax error|unexpected token)`,
		"Open the reported location and fix the syntax before rerunning."),
}

var builtinGeneric = map[classify.Category]string{
	classify.NPMInstall:      "Delete node_modules and the lockfile, clear the package manager cache, and reinstall from a clean state.",
	classify.TypeScriptError: "Run tsc --noEmit to list every type error and fix them from the first reported one down.",
	classify.TestFailure:     "Run the failing test in isolation with verbose output and compare expected and actual values.",
	classify.BuildFailure:    "Find the first error line in the build output and fix that before anything reported after it.",
	classify.FileNotFound:    "Confirm the path exists from the project root and correct the reference to it.",
	classify.GitConflict:     "Resolve the conflict markers in each listed file, then stage and commit the resolution.",
	classify.DatabaseError:   "Check the database is running, migrations are applied and the connection string is correct.",
	classify.APIError:        "Check the endpoint, credentials and network reachability before retrying the request.",
	classify.Unknown:         "Reread the error output, isolate the failing command, and try a different approach than last time.",
}
