/*
Package recipe reads workspace environment recipes.

A recipe is a YAML document describing the pods of a workspace and, for
every container, the machine it realizes: attributes, environment,
installers, servers and volumes. Parse validates the document against an
embedded JSON schema before decoding it; Build then produces the runtime
identity and the environment the provisioning pipeline operates on.

	apiVersion: burrow.cuemby.io/v1
	kind: Environment
	metadata:
	  workspaceId: workspace123
	pods:
	  - name: ws
	    containers:
	      - name: dev
	        image: eclipse/ubuntu_jdk8
	        resources:
	          memoryLimit: 2g
	        installers:
	          - id: org.eclipse.che.ws-agent
	            properties:
	              environment: CHE_API=http://che-host/api

A container's machine is named "<pod>/<container>" unless machineName is
set, in which case Build records the override as a pod annotation.
*/
package recipe
