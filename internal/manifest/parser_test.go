package manifest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exampleManifest mirrors a small Kotlin DSL build script. The guava
// declaration sits on line 9 of 12.
const exampleManifest = `plugins {
    id("java-library")
}

repositories { mavenCentral() }

dependencies {
    implementation("org.apache.commons:commons-lang3:3.12.0")
    implementation("com.google.guava:guava:33.0.0-jre")
    testImplementation("junit:junit:4.13.2")
}
`

func TestParse_GuavaScenario(t *testing.T) {
	lines := strings.Split(strings.TrimSuffix(exampleManifest, "\n"), "\n")
	require.Len(t, lines, 11)
	lines = append(lines, "// end")
	require.Len(t, lines, 12)

	decls := Parse(lines)
	require.Len(t, decls, 3)

	guava := decls[1]
	assert.Equal(t, Declaration{
		Group:      "com.google.guava",
		Artifact:   "guava",
		Version:    "33.0.0-jre",
		LineNumber: 9,
		RawLine:    `implementation("com.google.guava:guava:33.0.0-jre")`,
		ConfigKind: KindImplementation,
	}, guava)
	assert.Equal(t, "com.google.guava:guava:33.0.0-jre", guava.Coordinate())
	assert.Equal(t, "com.google.guava:guava", guava.Module())
}

func TestParse_ConfigurationKinds(t *testing.T) {
	tests := []struct {
		name string
		line string
		want ConfigKind
	}{
		{"implementation", `implementation("a.b:c:1.0")`, KindImplementation},
		{"api", `api("a.b:c:1.0")`, KindAPI},
		{"test", `testImplementation("junit:junit:4.13.2")`, KindTest},
		{"android test", `androidTestImplementation("androidx.test:runner:1.5.2")`, KindTest},
		{"debug", `debugImplementation("com.squareup.leakcanary:leakcanary-android:2.12")`, KindDebug},
		{"kapt", `kapt("com.google.dagger:dagger-compiler:2.50")`, KindAnnotationProcessor},
		{"ksp", `ksp("androidx.room:room-compiler:2.6.1")`, KindAnnotationProcessor},
		{"annotationProcessor", `annotationProcessor("org.projectlombok:lombok:1.18.30")`, KindAnnotationProcessor},
		{"test marker in coordinate", `implementation("org.jetbrains.kotlinx:kotlinx-coroutines-test:1.7.3")`, KindTest},
		{"api marker in coordinate", `implementation("com.google.api-client:google-api-client:2.0.0")`, KindAPI},
		{"test beats api on one line", `api("io.mockk:mockk-testapi:1.13.8")`, KindTest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decls := Parse([]string{tt.line})
			require.Len(t, decls, 1)
			assert.Equal(t, tt.want, decls[0].ConfigKind)
			assert.Equal(t, 1, decls[0].LineNumber)
		})
	}
}

func TestDetectKind_Precedence(t *testing.T) {
	tests := []struct {
		text string
		want ConfigKind
	}{
		{"testApi", KindTest},
		{"debugApi", KindDebug},
		{"kaptTest", KindTest},
		{"kaptDebug", KindDebug},
		{"api", KindAPI},
		{"implementation", KindImplementation},
		{"compileOnly", KindImplementation},
		{"TESTIMPLEMENTATION", KindTest},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectKind(tt.text))
		})
	}
}

func TestParse_QuotingAndWhitespace(t *testing.T) {
	lines := []string{
		`implementation( "a:b:1" )`,
		`implementation('c:d:2')`,
		`    implementation   (   'e:f:3'   )   `,
		`implementation 'g:h:4'`,
		`implementation "i:j:$kotlinVersion"`,
	}

	decls := Parse(lines)
	require.Len(t, decls, 5)

	wantArtifacts := []string{"b", "d", "f", "h", "j"}
	for i, d := range decls {
		assert.Equal(t, i+1, d.LineNumber)
		assert.Equal(t, wantArtifacts[i], d.Artifact)
	}
	assert.Equal(t, "$kotlinVersion", decls[4].Version)
	assert.True(t, decls[4].HasVariableVersion())
	assert.Equal(t, `implementation   (   'e:f:3'   )`, decls[2].RawLine)
}

func TestParse_SkipsMalformedLines(t *testing.T) {
	lines := []string{
		`implementation("a:b:1`,                                     // unterminated
		`implementation(group = "a", name = "b", version = "1")`,    // named arguments
		`implementation("a:b")`,                                     // two segments
		`implementation(platform("org.springframework:bom:3.2.0"))`, // nested call
		`implementation(project(":core"))`,
		``,
		`compileOnly("a:b:1")`,
	}

	assert.Empty(t, Parse(lines))
}

func TestParse_MultipleDeclarationsOnOneLine(t *testing.T) {
	decls := Parse([]string{`implementation("a:b:1"); api("c:d:2")`})

	require.Len(t, decls, 2)
	assert.Equal(t, "b", decls[0].Artifact)
	assert.Equal(t, "d", decls[1].Artifact)
	assert.Equal(t, decls[0].LineNumber, decls[1].LineNumber)

	// Kind comes from the whole line, so both share it.
	assert.Equal(t, KindAPI, decls[0].ConfigKind)
	assert.Equal(t, KindAPI, decls[1].ConfigKind)
}

func TestParse_CommentedDeclarations(t *testing.T) {
	decls := Parse([]string{
		`dependencies {`,
		`    // implementation("com.google.guava:guava:33.0.0-jre")`,
		`    /* testImplementation("junit:junit:4.13.2") */`,
		`}`,
	})

	require.Len(t, decls, 2)
	assert.Equal(t, "guava", decls[0].Artifact)
	assert.Equal(t, 2, decls[0].LineNumber)
	assert.Equal(t, KindImplementation, decls[0].ConfigKind)
	assert.Equal(t, `// implementation("com.google.guava:guava:33.0.0-jre")`, decls[0].RawLine)
	assert.Equal(t, "junit", decls[1].Artifact)
	assert.Equal(t, KindTest, decls[1].ConfigKind)
}

func TestParse_OrderedAndInBounds(t *testing.T) {
	lines := strings.Split(exampleManifest, "\n")
	decls := Parse(lines)
	require.NotEmpty(t, decls)

	for i, d := range decls {
		assert.GreaterOrEqual(t, d.LineNumber, 1)
		assert.LessOrEqual(t, d.LineNumber, len(lines))
		if i > 0 {
			assert.Greater(t, d.LineNumber, decls[i-1].LineNumber)
		}
	}
}

func TestParse_Idempotent(t *testing.T) {
	first := ParseText(exampleManifest)
	second := ParseText(exampleManifest)
	assert.Equal(t, first, second)
}

func TestParseText_Empty(t *testing.T) {
	assert.Empty(t, ParseText(""))
	assert.Empty(t, Parse(nil))
}

func TestParseText_CRLF(t *testing.T) {
	decls := ParseText("dependencies {\r\n    api(\"a:b:1\")\r\n}\r\n")
	require.Len(t, decls, 1)
	assert.Equal(t, 2, decls[0].LineNumber)
	assert.Equal(t, `api("a:b:1")`, decls[0].RawLine)
}

func TestReadLines(t *testing.T) {
	lines, err := ReadLines(strings.NewReader("a\nb\r\nc"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, lines)

	lines, err = ReadLines(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, lines)
}
