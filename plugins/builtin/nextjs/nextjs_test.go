package nextjs

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/scan-io-git/brakit/plugins/builtin/builtintest"
)

var project = map[string]string{
	"app/api/users/route.ts": `import { db } from "@/lib/db";

export async function GET() {
  return Response.json(await db.user.findMany());
}

export async function POST(req: Request) {
  return Response.json(await req.json());
}
`,
	"app/api/admin/route.ts": `import { getServerSession } from "next-auth";

export async function GET() {
  const session = await getServerSession();
  return Response.json(session);
}
`,
	"app/actions.ts": `"use server";

export async function deleteUser(id: string) {
  return id;
}
`,
	"app/dashboard/widget.tsx": `"use client";

export default function Widget() {
  return <p>{process.env.STRIPE_SECRET_KEY}{process.env.NEXT_PUBLIC_URL}{process.env.NODE_ENV}</p>;
}
`,
	"app/page.tsx": `export default function Page() {
  return <main />;
}
`,
	"middleware.ts": `export function middleware() {}
`,
	"pages/api/legacy.ts": `export default async function handler(req, res) {
  res.status(200).json({});
}
`,
	"lib/format.ts": `export function format(v: string) {
  return v;
}
`,
}

func TestRoles(t *testing.T) {
	result := builtintest.Scan(t, project, Plugin())

	tests := map[string][]string{
		"app/api/users/route.ts":   {RoleAPIRoute},
		"app/api/admin/route.ts":   {RoleAPIRoute},
		"app/actions.ts":           {RoleServerAction},
		"app/dashboard/widget.tsx": {RoleClientComponent},
		"app/page.tsx":             {RoleServerComponent},
		"middleware.ts":            {RoleMiddleware},
		"pages/api/legacy.ts":      {RoleAPIRoute},
		"lib/format.ts":            {},
	}
	for path, want := range tests {
		assert.Equal(t, want, result.FileAnalyses[path].Roles, path)
	}
}

func TestPatterns(t *testing.T) {
	result := builtintest.Scan(t, project, Plugin())

	assert.Equal(t, []builtintest.Hit{
		{PatternID: MissingSessionCheck, FilePath: "app/actions.ts", Line: 3},
		{PatternID: MissingSessionCheck, FilePath: "app/api/users/route.ts", Line: 3},
		{PatternID: MissingSessionCheck, FilePath: "app/api/users/route.ts", Line: 7},
		{PatternID: ClientEnvLeak, FilePath: "app/dashboard/widget.tsx", Line: 4},
		{PatternID: MissingSessionCheck, FilePath: "pages/api/legacy.ts", Line: 1},
	}, builtintest.Hits(result.Findings))

	leak := result.Findings[3]
	assert.Equal(t, "client component reads process.env.STRIPE_SECRET_KEY", leak.Message)
	assert.Equal(t, "STRIPE_SECRET_KEY", leak.Metadata["variable"])
}

func TestUnderDir(t *testing.T) {
	assert.True(t, underDir("app/page.tsx", "app"))
	assert.True(t, underDir("src/app/page.tsx", "app"))
	assert.True(t, underDir("apps/web/pages/api/x.ts", "pages/api"))
	assert.False(t, underDir("application/page.tsx", "app"))
}
