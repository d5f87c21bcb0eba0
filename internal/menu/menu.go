// Package menu drives the interactive numbered menu on top of the family
// tree. It reads one line per prompt and prints the outcome of every
// operation as a human-readable message.
package menu

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/starford/kinship/internal/apperr"
	"github.com/starford/kinship/internal/familytree"
)

// Tree is the subset of *familytree.Tree the menu drives.
type Tree interface {
	AddPerson(name string) error
	AddRelationship(name, relType string) error
	Connect(name1, relationship, name2 string) error
	CountSons(name string) (int, error)
	CountDaughters(name string) (int, error)
	CountWives(name string) (int, error)
	FatherOf(name string) (string, error)
}

var _ Tree = (*familytree.Tree)(nil)

const (
	choiceAddPerson = iota + 1
	choiceAddRelationship
	choiceConnect
	choiceCountSons
	choiceCountDaughters
	choiceCountWives
	choiceFatherOf
	choiceExit
)

// Menu is the interactive loop.
type Menu struct {
	tree Tree
	in   *bufio.Reader
	out  io.Writer
}

// New creates a menu reading from in and writing to out.
func New(tree Tree, in io.Reader, out io.Writer) *Menu {
	return &Menu{tree: tree, in: bufio.NewReader(in), out: out}
}

// Run shows the menu until the user exits, input ends or ctx is cancelled.
// It returns an error only when an operation fails for a reason other than a
// reported outcome, such as the family file becoming unwritable.
func (m *Menu) Run(ctx context.Context) error {
	m.println("Family tree")

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		m.printMenu()

		line, err := m.prompt("Enter your choice: ")
		if err != nil {
			return eofAsExit(err)
		}

		choice, convErr := strconv.Atoi(strings.TrimSpace(line))
		if convErr != nil {
			choice = 0
		}
		if choice == choiceExit {
			m.println("Exiting...")
			return nil
		}
		if err := m.dispatch(choice); err != nil {
			return eofAsExit(err)
		}
	}
}

func (m *Menu) printMenu() {
	m.println("\nMenu:")
	m.println("1. Add Person")
	m.println("2. Add Relationship")
	m.println("3. Connect Persons")
	m.println("4. Count Sons")
	m.println("5. Count Daughters")
	m.println("6. Count Wives")
	m.println("7. Father Of")
	m.println("8. Exit")
}

func (m *Menu) dispatch(choice int) error {
	switch choice {
	case choiceAddPerson:
		name, err := m.prompt("Enter person's name: ")
		if err != nil {
			return err
		}
		return m.addPerson(name)

	case choiceAddRelationship:
		name, err := m.prompt("Enter person's name to add relationship: ")
		if err != nil {
			return err
		}
		relType, err := m.prompt("Enter relationship name: ")
		if err != nil {
			return err
		}
		return m.addRelationship(name, relType)

	case choiceConnect:
		name1, err := m.prompt("Enter name 1: ")
		if err != nil {
			return err
		}
		relationship, err := m.prompt("Enter relationship: ")
		if err != nil {
			return err
		}
		name2, err := m.prompt("Enter name 2: ")
		if err != nil {
			return err
		}
		return m.connect(name1, relationship, name2)

	case choiceCountSons:
		return m.count("sons", m.tree.CountSons)
	case choiceCountDaughters:
		return m.count("daughters", m.tree.CountDaughters)
	case choiceCountWives:
		return m.count("wives", m.tree.CountWives)

	case choiceFatherOf:
		name, err := m.prompt("Enter person's name: ")
		if err != nil {
			return err
		}
		return m.fatherOf(name)

	default:
		m.println("Invalid choice.")
		return nil
	}
}

func (m *Menu) addPerson(name string) error {
	err := m.tree.AddPerson(name)
	switch {
	case err == nil:
		m.printf("Person %s added.\n", name)
	case errors.Is(err, apperr.ErrAlreadyExists):
		m.printf("Person %s already exists.\n", name)
	default:
		return err
	}
	return nil
}

func (m *Menu) addRelationship(name, relType string) error {
	err := m.tree.AddRelationship(name, relType)
	switch {
	case err == nil:
		m.printf("Relationship '%s' added for %s.\n", relType, name)
	case errors.Is(err, apperr.ErrNotFound):
		m.printf("Person %s does not exist.\n", name)
	default:
		return err
	}
	return nil
}

func (m *Menu) connect(name1, relationship, name2 string) error {
	err := m.tree.Connect(name1, relationship, name2)
	switch {
	case err == nil:
		m.printf("%s connected as %s of %s.\n", name1, relationship, name2)
	case errors.Is(err, apperr.ErrNotFound):
		m.println("Both persons should exist.")
	default:
		return err
	}
	return nil
}

func (m *Menu) count(label string, fn func(string) (int, error)) error {
	name, err := m.prompt("Enter person's name: ")
	if err != nil {
		return err
	}
	n, err := fn(name)
	if err != nil {
		if !errors.Is(err, apperr.ErrNotFound) {
			return err
		}
		m.printf("Person %s does not exist.\n", name)
	}
	m.printf("Number of %s: %d\n", label, n)
	return nil
}

func (m *Menu) fatherOf(name string) error {
	father, err := m.tree.FatherOf(name)
	switch {
	case err == nil:
		m.printf("Father of %s is %s.\n", name, father)
	case errors.Is(err, apperr.ErrNotFound):
		m.printf("Person %s does not exist.\n", name)
	case errors.Is(err, familytree.ErrNoFather):
		m.printf("No father found for %s.\n", name)
	default:
		return err
	}
	return nil
}

// prompt writes question and returns the next input line without its line
// terminator. Names are exact, so other whitespace is kept. A final line
// without a newline is still returned; io.EOF is reported only when no input
// is left.
func (m *Menu) prompt(question string) (string, error) {
	_, _ = io.WriteString(m.out, question)
	line, err := m.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (m *Menu) println(s string) {
	_, _ = fmt.Fprintln(m.out, s)
}

func (m *Menu) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(m.out, format, args...)
}

// eofAsExit treats the end of input like choosing Exit.
func eofAsExit(err error) error {
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
