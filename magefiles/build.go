//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
)

type Build mg.Namespace

// Compiles the GLSL sources to SPIR-V with glslc.
func (Build) Shaders() error {
	return buildShaders()
}

// Builds the renderer binary.
func (Build) Engine() error {
	if err := buildShaders(); err != nil {
		return err
	}
	if _, err := executeCmd("go", withArgs("build", "-o", "prisma", "."), withStream()); err != nil {
		return err
	}
	return nil
}

func buildShaders() error {
	if _, err := executeCmd("glslc", withArgs("shaders/cube.vert", "-o", "shaders/cube.vert.spv"), withStream()); err != nil {
		return err
	}
	if _, err := executeCmd("glslc", withArgs("shaders/cube.frag", "-o", "shaders/cube.frag.spv"), withStream()); err != nil {
		return err
	}
	return nil
}
