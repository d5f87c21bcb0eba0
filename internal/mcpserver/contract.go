package mcpserver

// FileFormatURI is the resource URI of FileFormatContract.
const FileFormatURI = "kinship://file-format"

// FileFormatContract describes the family file so that LLM consumers can
// reason about what the tools read and write.
const FileFormatContract = `# Kinship Family File Format

The family tree is stored as one text file, one relationship per line.

## Record

` + "```" + `
owner,type,target
` + "```" + `

- **owner** is the person that holds the relationship.
- **type** is a free-form label. The menu and the counting tools use the
  exact, case-sensitive labels ` + "`son`" + `, ` + "`daughter`" + `, ` + "`wife`" + ` and ` + "`father`" + `.
- **target** is the person the relationship points at.

Example: ` + "`Bob,father,Al`" + ` means "Al is Bob's father".

## Rules

1. Records appear in person insertion order, then in relationship order
   within a person.
2. A person with no relationships is not written and is lost on restart.
3. Fields containing a comma, quote or line break are quoted CSV-style
   (` + "`\"Smith, Jr.\",son,Al`" + `). Plain names are never quoted.
4. Lines that do not split into exactly three fields are skipped on load.
5. A target that is not yet a person is created when the line is loaded.

## Tool semantics

- ` + "`connect_persons(name1, relationship, name2)`" + ` records name1 as the
  relationship of name2: the edge is stored on name2 pointing at name1.
- ` + "`add_relationship(name, type)`" + ` stores an edge from the person to themself.
- ` + "`father_of(name)`" + ` returns the target of the first ` + "`father`" + ` edge.
`
